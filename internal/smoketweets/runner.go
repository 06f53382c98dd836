package smoketweets

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/okian/tweets/pkg/logger"
)

const notFoundTitle = "tweet not found."

type runner struct {
	cfg    *Config
	client *HTTPClient
	stats  *Stats
	log    logger.Logger
}

// Run drives every tweet route against a running server: it creates
// NumTweets tweets concurrently, lists them, reads each back, updates and
// deletes it, and confirms the deleted id answers 404.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	r := &runner{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		stats:  &Stats{StartTime: time.Now()},
		log:    logger.Get().Named("smoke"),
	}

	r.log.Info(ctx, "starting tweets smoke run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("pathPrefix", cfg.PathPrefix),
		logger.Int("tweets", cfg.NumTweets),
		logger.Int("workers", cfg.Workers),
	)

	if err := r.checkHealth(ctx); err != nil {
		return r.stats, err
	}
	if err := r.checkValidation(ctx); err != nil {
		return r.stats, err
	}

	runID := uuid.NewString()[:8]
	created := r.createAll(ctx, runID)

	if err := r.checkList(ctx, created); err != nil {
		return r.stats, err
	}

	parallel(ctx, cfg.Workers, created, r.lifecycle)

	r.stats.EndTime = time.Now()
	r.stats.Duration = r.stats.EndTime.Sub(r.stats.StartTime)
	r.reportServerStats(ctx)
	r.displayFinalStats(ctx)

	if n := atomic.LoadInt64(&r.stats.Failed); n > 0 {
		return r.stats, fmt.Errorf("%w: %d", ErrFailures, n)
	}
	return r.stats, nil
}

func (r *runner) collectionURL() string {
	return strings.TrimRight(r.cfg.BaseURL, "/") + strings.TrimRight(r.cfg.PathPrefix, "/") + "/"
}

func (r *runner) itemURL(id int64) string {
	return r.collectionURL() + strconv.FormatInt(id, 10)
}

func (r *runner) fail(ctx context.Context, msg string, id int64, err error) {
	atomic.AddInt64(&r.stats.Failed, 1)
	r.log.Error(ctx, msg, logger.Int64("tweet_id", id), logger.Error(err))
}

func (r *runner) checkHealth(ctx context.Context) error {
	status, data, err := r.client.Do(ctx, http.MethodGet, strings.TrimRight(r.cfg.BaseURL, "/")+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if err := expect(status, http.StatusOK, data, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	r.log.Info(ctx, "service is healthy")
	return nil
}

// checkValidation posts a blank message and expects the validation gate to
// answer before anything is stored.
func (r *runner) checkValidation(ctx context.Context) error {
	status, data, err := r.client.Do(ctx, http.MethodPost, r.collectionURL(), tweetInput{Message: "   "})
	if err != nil {
		return err
	}
	var body errorResponse
	if err := expect(status, http.StatusBadRequest, data, &body); err != nil {
		return fmt.Errorf("blank message: %w", err)
	}
	if len(body.Errors) == 0 {
		return fmt.Errorf("%w: blank message rejected without errors", ErrMismatch)
	}
	r.stats.Rejected++
	return nil
}

func (r *runner) createAll(ctx context.Context, runID string) []Tweet {
	var (
		mu      sync.Mutex
		created = make([]Tweet, 0, r.cfg.NumTweets)
	)
	parallel(ctx, r.cfg.Workers, lo.Range(r.cfg.NumTweets), func(ctx context.Context, i int) {
		msg := fmt.Sprintf("smoke %s #%d", runID, i)
		status, data, err := r.client.Do(ctx, http.MethodPost, r.collectionURL(), tweetInput{Message: msg})
		if err != nil {
			r.fail(ctx, "create failed", 0, err)
			return
		}
		var t Tweet
		if err := expect(status, http.StatusOK, data, &t); err != nil {
			r.fail(ctx, "create failed", 0, err)
			return
		}
		if t.Message != msg || t.ID == 0 {
			r.fail(ctx, "create echoed wrong tweet", t.ID, ErrMismatch)
			return
		}
		atomic.AddInt64(&r.stats.Created, 1)
		if r.cfg.Verbose {
			r.log.Info(ctx, "created", logger.Int64("tweet_id", t.ID))
		}
		mu.Lock()
		created = append(created, t)
		mu.Unlock()
	})
	r.log.Info(ctx, "tweets created", logger.Int64("created", r.stats.Created), logger.Int64("failed", r.stats.Failed))
	return created
}

func (r *runner) checkList(ctx context.Context, created []Tweet) error {
	status, data, err := r.client.Do(ctx, http.MethodGet, r.collectionURL(), nil)
	if err != nil {
		return err
	}
	var list listResponse
	if err := expect(status, http.StatusOK, data, &list); err != nil {
		return fmt.Errorf("list: %w", err)
	}
	r.stats.Listed = len(list.Tweets)

	listed := lo.SliceToMap(list.Tweets, func(t Tweet) (int64, bool) { return t.ID, true })
	missing := lo.Filter(created, func(t Tweet, _ int) bool { return !listed[t.ID] })
	if len(missing) > 0 {
		return fmt.Errorf("%w: %d created tweets missing from list", ErrMismatch, len(missing))
	}
	return nil
}

// lifecycle reads, updates and deletes one tweet, then confirms it is gone.
func (r *runner) lifecycle(ctx context.Context, t Tweet) {
	url := r.itemURL(t.ID)

	status, data, err := r.client.Do(ctx, http.MethodGet, url, nil)
	var got Tweet
	if err == nil {
		err = expect(status, http.StatusOK, data, &got)
	}
	if err == nil && got.Message != t.Message {
		err = ErrMismatch
	}
	if err != nil {
		r.fail(ctx, "read failed", t.ID, err)
		return
	}
	atomic.AddInt64(&r.stats.Read, 1)

	msg := t.Message + " (edited)"
	status, data, err = r.client.Do(ctx, http.MethodPut, url, tweetInput{Message: msg})
	var upd updateResponse
	if err == nil {
		err = expect(status, http.StatusOK, data, &upd)
	}
	if err == nil && (upd.Tweet.ID != t.ID || upd.Tweet.Message != msg) {
		err = ErrMismatch
	}
	if err != nil {
		r.fail(ctx, "update failed", t.ID, err)
		return
	}
	atomic.AddInt64(&r.stats.Updated, 1)

	status, data, err = r.client.Do(ctx, http.MethodDelete, url, nil)
	if err == nil {
		err = expect(status, http.StatusNoContent, data, nil)
	}
	if err != nil {
		r.fail(ctx, "delete failed", t.ID, err)
		return
	}
	atomic.AddInt64(&r.stats.Deleted, 1)

	status, data, err = r.client.Do(ctx, http.MethodGet, url, nil)
	var nf errorResponse
	if err == nil {
		err = expect(status, http.StatusNotFound, data, &nf)
	}
	if err == nil && nf.Title != notFoundTitle {
		err = fmt.Errorf("%w: title %q", ErrMismatch, nf.Title)
	}
	if err != nil {
		r.fail(ctx, "deleted tweet still readable", t.ID, err)
		return
	}
	atomic.AddInt64(&r.stats.Verified, 1)
}

func (r *runner) reportServerStats(ctx context.Context) {
	status, data, err := r.client.Do(ctx, http.MethodGet, strings.TrimRight(r.cfg.BaseURL, "/")+"/stats", nil)
	if err != nil || status != http.StatusOK {
		r.log.Warn(ctx, "could not fetch server stats", logger.Int("status", status), logger.Error(err))
		return
	}
	r.log.Info(ctx, "server stats", logger.String("stats", strings.TrimSpace(string(data))))
}

func (r *runner) displayFinalStats(ctx context.Context) {
	var perSecond float64
	if r.stats.Duration > 0 {
		perSecond = float64(r.stats.Created) / r.stats.Duration.Seconds()
	}
	r.log.Info(ctx, "final statistics",
		logger.Int64("created", r.stats.Created),
		logger.Int("listed", r.stats.Listed),
		logger.Int64("read", r.stats.Read),
		logger.Int64("updated", r.stats.Updated),
		logger.Int64("deleted", r.stats.Deleted),
		logger.Int64("verified", r.stats.Verified),
		logger.Int64("rejected", r.stats.Rejected),
		logger.Int64("failed", r.stats.Failed),
		logger.Duration("duration", r.stats.Duration),
		logger.Float64("tweetsPerSecond", perSecond),
	)
}

// parallel feeds items to a fixed set of workers and waits for them.
func parallel[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T)) {
	if workers < 1 {
		workers = 1
	}
	ch := make(chan T, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range ch {
				if ctx.Err() != nil {
					continue
				}
				fn(ctx, item)
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, item := range items {
			select {
			case <-ctx.Done():
				return
			case ch <- item:
			}
		}
	}()
	wg.Wait()
}
