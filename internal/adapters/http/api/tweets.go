package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/okian/tweets/internal/domain/model"
)

// TweetStore is what the tweet handlers need from storage.
type TweetStore interface {
	All(ctx context.Context) ([]model.Tweet, error)
	Get(ctx context.Context, id int64) (model.Tweet, error)
	Create(ctx context.Context, in model.Input) (model.Tweet, error)
	Update(ctx context.Context, id int64, in model.Input) (model.Tweet, error)
	Delete(ctx context.Context, id int64) (model.Tweet, error)
}

type listResponse struct {
	Tweets []model.Tweet `json:"tweets"`
}

type updateResponse struct {
	Tweet model.Tweet `json:"tweet"`
}

// TweetsHandler serves the tweet resource.
type TweetsHandler struct {
	store TweetStore
}

// NewTweetsHandler creates a new tweets handler.
func NewTweetsHandler(store TweetStore) *TweetsHandler {
	return &TweetsHandler{store: store}
}

// HandleList handles GET {prefix}/.
func (h *TweetsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_tweets"
	tweets, err := h.store.All(r.Context())
	if err != nil {
		reportError(w, r, Wrap(op, err))
		return
	}
	if tweets == nil {
		tweets = []model.Tweet{}
	}
	writeJSON(w, http.StatusOK, listResponse{Tweets: tweets})
}

// HandleGet handles GET {prefix}/{id}.
func (h *TweetsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_tweet"
	id, err := tweetID(r)
	if err != nil {
		reportError(w, r, Wrap(op, err))
		return
	}
	t, err := h.store.Get(r.Context(), id)
	if err != nil {
		reportError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleCreate handles POST {prefix}/. The body has passed the validation gate.
func (h *TweetsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_tweet"
	in, ok := inputFrom(r.Context())
	if !ok {
		reportError(w, r, NewKind(op, ErrBadRequest))
		return
	}
	t, err := h.store.Create(r.Context(), in)
	if err != nil {
		reportError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleUpdate handles PUT {prefix}/{id}. Only the message is replaced.
func (h *TweetsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_tweet"
	id, err := tweetID(r)
	if err != nil {
		reportError(w, r, Wrap(op, err))
		return
	}
	in, ok := inputFrom(r.Context())
	if !ok {
		reportError(w, r, NewKind(op, ErrBadRequest))
		return
	}
	t, err := h.store.Update(r.Context(), id, in)
	if err != nil {
		reportError(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Tweet: t})
}

// HandleDelete handles DELETE {prefix}/{id}.
func (h *TweetsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_tweet"
	id, err := tweetID(r)
	if err != nil {
		reportError(w, r, Wrap(op, err))
		return
	}
	if _, err := h.store.Delete(r.Context(), id); err != nil {
		reportError(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tweetID reads the numeric id matched by the router. Ids too large for
// int64 cannot exist in any store, so they are reported as not found.
func tweetID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &model.NotFoundError{ID: raw}
	}
	return id, nil
}
