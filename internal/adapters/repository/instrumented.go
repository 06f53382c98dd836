package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/tweets/internal/domain/model"
	"github.com/okian/tweets/pkg/metrics"
)

// Instrumented records latency and error metrics around another Store.
type Instrumented struct {
	next   Store
	driver string
}

var _ Store = (*Instrumented)(nil)

// NewInstrumented wraps next, labelling its metrics with driver.
func NewInstrumented(next Store, driver string) *Instrumented {
	return &Instrumented{next: next, driver: driver}
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(s.driver, op, float64(time.Since(start).Milliseconds()))
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		metrics.RecordStoreError(s.driver, op)
	}
}

func (s *Instrumented) All(ctx context.Context) (out []model.Tweet, err error) {
	defer func(start time.Time) { s.observe("find_all", start, err) }(time.Now())
	return s.next.All(ctx)
}

func (s *Instrumented) Get(ctx context.Context, id int64) (t model.Tweet, err error) {
	defer func(start time.Time) { s.observe("find_by_pk", start, err) }(time.Now())
	return s.next.Get(ctx, id)
}

func (s *Instrumented) Create(ctx context.Context, in model.Input) (t model.Tweet, err error) {
	defer func(start time.Time) { s.observe("create", start, err) }(time.Now())
	return s.next.Create(ctx, in)
}

func (s *Instrumented) Update(ctx context.Context, id int64, in model.Input) (t model.Tweet, err error) {
	defer func(start time.Time) { s.observe("update", start, err) }(time.Now())
	return s.next.Update(ctx, id, in)
}

func (s *Instrumented) Delete(ctx context.Context, id int64) (t model.Tweet, err error) {
	defer func(start time.Time) { s.observe("destroy", start, err) }(time.Now())
	return s.next.Delete(ctx, id)
}

func (s *Instrumented) Count(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { s.observe("count", start, err) }(time.Now())
	return s.next.Count(ctx)
}

func (s *Instrumented) Ping(ctx context.Context) error { return s.next.Ping(ctx) }

func (s *Instrumented) Close() error { return s.next.Close() }
