package smoketweets_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/tweets/internal/adapters/http/api"
	"github.com/okian/tweets/internal/adapters/mq/publisher"
	service "github.com/okian/tweets/internal/app"
	"github.com/okian/tweets/internal/domain/validation"
	"github.com/okian/tweets/internal/smoketweets"
	"github.com/okian/tweets/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.InitWithFormat("text", io.Discard); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func startServer(t *testing.T, prefix string) (*httptest.Server, *service.Service) {
	t.Helper()
	ctx := context.Background()
	svc := service.New(service.WithPublisher(publisher.NewLog()))
	if err := svc.Start(ctx); err != nil {
		t.Fatal(err)
	}
	srv := api.NewServer(svc, validation.New(validation.DefaultMaxLength), svc,
		api.WithPathPrefix(prefix),
		api.WithHealthChecker(svc),
		api.WithoutDocs(),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = svc.Stop(ctx)
	})
	return ts, svc
}

func TestRun(t *testing.T) {
	Convey("Given a running tweets server", t, func() {
		ts, svc := startServer(t, "/tweets")

		Convey("When the smoke run drives every route", func() {
			stats, err := smoketweets.Run(context.Background(), &smoketweets.Config{
				BaseURL:    ts.URL,
				PathPrefix: "/tweets",
				NumTweets:  25,
				Workers:    4,
				Timeout:    5 * time.Second,
			})

			Convey("Then every tweet completes its lifecycle", func() {
				So(err, ShouldBeNil)
				So(stats.Failed, ShouldEqual, int64(0))
				So(stats.Created, ShouldEqual, int64(25))
				So(stats.Listed, ShouldEqual, 25)
				So(stats.Read, ShouldEqual, int64(25))
				So(stats.Updated, ShouldEqual, int64(25))
				So(stats.Deleted, ShouldEqual, int64(25))
				So(stats.Verified, ShouldEqual, int64(25))
				So(stats.Rejected, ShouldEqual, int64(1))
			})

			Convey("Then the server is left empty", func() {
				So(svc.GetStats(context.Background())["tweets"], ShouldEqual, int64(0))
			})
		})
	})
}

func TestRun_RootPrefix(t *testing.T) {
	Convey("Given a server with tweets mounted at the root", t, func() {
		ts, _ := startServer(t, "")

		Convey("Then the smoke run succeeds with an empty prefix", func() {
			stats, err := smoketweets.Run(context.Background(), &smoketweets.Config{
				BaseURL:   ts.URL,
				NumTweets: 5,
				Workers:   2,
				Timeout:   5 * time.Second,
			})
			So(err, ShouldBeNil)
			So(stats.Verified, ShouldEqual, int64(5))
		})
	})
}

func TestRun_SlashPrefix(t *testing.T) {
	Convey("Given a server with tweets mounted at the root", t, func() {
		ts, _ := startServer(t, "")

		Convey("Then a prefix of a single slash addresses the root collection", func() {
			stats, err := smoketweets.Run(context.Background(), &smoketweets.Config{
				BaseURL:    ts.URL + "/",
				PathPrefix: "/",
				NumTweets:  3,
				Workers:    1,
				Timeout:    5 * time.Second,
			})
			So(err, ShouldBeNil)
			So(stats.Failed, ShouldEqual, int64(0))
			So(stats.Verified, ShouldEqual, int64(3))
		})
	})
}

func TestRun_Unhealthy(t *testing.T) {
	Convey("Given a server whose health check fails", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		Convey("Then the run stops before creating anything", func() {
			stats, err := smoketweets.Run(context.Background(), &smoketweets.Config{
				BaseURL:   ts.URL,
				NumTweets: 5,
				Workers:   1,
				Timeout:   time.Second,
			})
			So(errors.Is(err, smoketweets.ErrUnhealthy), ShouldBeTrue)
			So(stats.Created, ShouldEqual, int64(0))
		})
	})
}
