package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/tweets/internal/adapters/repository"
	"github.com/okian/tweets/internal/domain/model"
	"github.com/okian/tweets/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
	os.Exit(m.Run())
}

type storeFactory func(t *testing.T) repository.Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) repository.Store {
			return repository.NewMemoryStore()
		},
		"gorm-sqlite": func(t *testing.T) repository.Store {
			name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
			s, err := repository.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
			require.NoError(t, err)
			return s
		},
		"badger": func(t *testing.T) repository.Store {
			s, err := repository.OpenBadger("")
			require.NoError(t, err)
			return s
		},
		"postgres": func(t *testing.T) repository.Store {
			dsn := os.Getenv("TWEETS_TEST_POSTGRES_DSN")
			if dsn == "" {
				t.Skip("TWEETS_TEST_POSTGRES_DSN not set")
			}
			s, err := repository.OpenPostgres(context.Background(), dsn)
			require.NoError(t, err)
			all, err := s.All(context.Background())
			require.NoError(t, err)
			for _, tw := range all {
				_, err := s.Delete(context.Background(), tw.ID)
				require.NoError(t, err)
			}
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s repository.Store)) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := repository.NewInstrumented(open(t), name)
			defer func() { _ = s.Close() }()
			fn(t, s)
		})
	}
}

func Test_Create_Then_Get(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s repository.Store) {
		req := require.New(t)
		ctx := context.Background()

		created, err := s.Create(ctx, model.Input{Message: "hello"})
		req.NoError(err)
		req.Positive(created.ID)
		req.Equal("hello", created.Message)
		req.False(created.CreatedAt.IsZero())

		got, err := s.Get(ctx, created.ID)
		req.NoError(err)
		req.Equal(created.ID, got.ID)
		req.Equal("hello", got.Message)
		req.True(created.CreatedAt.Equal(got.CreatedAt))
	})
}

func Test_Ids_Are_Unique_And_All_Is_Ordered(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s repository.Store) {
		req := require.New(t)
		ctx := context.Background()

		seen := map[int64]bool{}
		for i := 0; i < 5; i++ {
			tw, err := s.Create(ctx, model.Input{Message: fmt.Sprintf("m%d", i)})
			req.NoError(err)
			req.False(seen[tw.ID], "duplicate id %d", tw.ID)
			seen[tw.ID] = true
		}

		all, err := s.All(ctx)
		req.NoError(err)
		req.Len(all, 5)
		for i := 1; i < len(all); i++ {
			req.Less(all[i-1].ID, all[i].ID)
		}

		n, err := s.Count(ctx)
		req.NoError(err)
		req.EqualValues(5, n)
	})
}

func Test_Empty_Store_Lists_Nothing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s repository.Store) {
		all, err := s.All(context.Background())
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func Test_Update_Replaces_Message_Only(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s repository.Store) {
		req := require.New(t)
		ctx := context.Background()

		created, err := s.Create(ctx, model.Input{Message: "before"})
		req.NoError(err)

		updated, err := s.Update(ctx, created.ID, model.Input{Message: "after"})
		req.NoError(err)
		req.Equal(created.ID, updated.ID)
		req.Equal("after", updated.Message)
		req.True(created.CreatedAt.Equal(updated.CreatedAt))
		req.False(updated.UpdatedAt.Before(created.UpdatedAt))

		got, err := s.Get(ctx, created.ID)
		req.NoError(err)
		req.Equal("after", got.Message)
	})
}

func Test_Delete_Removes_Tweet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s repository.Store) {
		req := require.New(t)
		ctx := context.Background()

		created, err := s.Create(ctx, model.Input{Message: "bye"})
		req.NoError(err)

		deleted, err := s.Delete(ctx, created.ID)
		req.NoError(err)
		req.Equal("bye", deleted.Message)

		_, err = s.Get(ctx, created.ID)
		req.True(errors.Is(err, model.ErrNotFound))

		_, err = s.Delete(ctx, created.ID)
		req.True(errors.Is(err, model.ErrNotFound))
	})
}

func Test_Missing_Ids_Are_Not_Found(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s repository.Store) {
		ctx := context.Background()

		_, err := s.Get(ctx, 999)
		var nf *model.NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, "999", nf.ID)

		_, err = s.Update(ctx, 999, model.Input{Message: "x"})
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})
}

func Test_Concurrent_Creates_Get_Distinct_Ids(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s repository.Store) {
		ctx := context.Background()
		const n = 20

		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			ids = map[int64]bool{}
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tw, err := s.Create(ctx, model.Input{Message: fmt.Sprintf("c%d", i)})
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				ids[tw.ID] = true
				mu.Unlock()
			}(i)
		}
		wg.Wait()
		assert.Len(t, ids, n)
	})
}

func Test_Memory_Store_Uses_Clock_And_Honours_Close(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	s := repository.NewMemoryStore(repository.WithClock(func() time.Time { return fixed }))
	tw, err := s.Create(ctx, model.Input{Message: "clocked"})
	req.NoError(err)
	req.Equal(fixed, tw.CreatedAt)

	req.NoError(s.Close())
	req.ErrorIs(s.Ping(ctx), repository.ErrClosed)
	_, err = s.Create(ctx, model.Input{Message: "late"})
	req.ErrorIs(err, repository.ErrClosed)
}

func Test_Canceled_Context_Is_Honoured(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := repository.NewMemoryStore()
	_, err := s.Create(ctx, model.Input{Message: "never"})
	require.ErrorIs(t, err, context.Canceled)
}
