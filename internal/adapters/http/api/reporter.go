package api

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/okian/tweets/internal/domain/model"
	"github.com/okian/tweets/pkg/logger"
)

// Fixed titles written by the error reporter.
const (
	titleBadRequest       = "Bad request."
	titleRouteNotFound    = "route not found."
	titleMethodNotAllowed = "method not allowed."
	titleServerError      = "Server Error"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Status  int      `json:"status"`
	Title   string   `json:"title"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// classify maps err to the response body the client sees.
func classify(r *http.Request, err error) errorBody {
	var (
		verr *model.ValidationError
		nf   *model.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return errorBody{Status: http.StatusBadRequest, Title: titleBadRequest, Errors: verr.Messages}
	case errors.Is(err, ErrBadRequest):
		return errorBody{Status: http.StatusBadRequest, Title: titleBadRequest, Errors: []string{msgBodyMissing}}
	case errors.As(err, &nf):
		return errorBody{Status: http.StatusNotFound, Title: nf.Title(), Message: nf.Error()}
	case errors.Is(err, ErrRouteNotFound):
		return errorBody{Status: http.StatusNotFound, Title: titleRouteNotFound,
			Message: "route " + r.Method + " " + r.URL.Path + " could not be found."}
	case errors.Is(err, ErrMethodNotAllowed):
		return errorBody{Status: http.StatusMethodNotAllowed, Title: titleMethodNotAllowed,
			Message: "method " + r.Method + " is not allowed on " + r.URL.Path + "."}
	default:
		return errorBody{Status: http.StatusInternalServerError, Title: titleServerError, Message: err.Error()}
	}
}

// reportError writes err as a JSON error response. Server errors are logged
// with the request-scoped fields.
func reportError(w http.ResponseWriter, r *http.Request, err error) {
	body := classify(r, err)
	if body.Status >= http.StatusInternalServerError {
		logger.Get().Named("api").Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeJSON(w, body.Status, body)
}
