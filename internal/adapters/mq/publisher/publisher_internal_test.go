package publisher

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tweets/internal/domain/model"
	"github.com/okian/tweets/pkg/logger"
)

type fakeChannel struct {
	exchange, key string
	msgs          []amqp.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange, f.key = exchange, key
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublisher(t *testing.T) {
	Convey("Given an AMQP publisher on a fake channel", t, func() {
		ch := &fakeChannel{}
		p := newAMQP(ch, "tweets.events")
		at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
		e := model.Event{EventID: "evt-1", Type: model.EventUpdated, TweetID: 9, Message: "edited", At: at}

		Convey("Publish routes a persistent JSON message to the queue", func() {
			So(p.Publish(context.Background(), e), ShouldBeNil)
			So(ch.exchange, ShouldEqual, "")
			So(ch.key, ShouldEqual, "tweets.events")
			So(ch.msgs, ShouldHaveLength, 1)

			msg := ch.msgs[0]
			So(msg.ContentType, ShouldEqual, "application/json")
			So(msg.DeliveryMode, ShouldEqual, amqp.Persistent)
			So(msg.MessageId, ShouldEqual, "evt-1")
			So(msg.Type, ShouldEqual, "tweet.updated")

			var decoded model.Event
			So(json.Unmarshal(msg.Body, &decoded), ShouldBeNil)
			So(decoded.TweetID, ShouldEqual, 9)
			So(decoded.Message, ShouldEqual, "edited")
			So(decoded.At.Equal(at), ShouldBeTrue)
		})

		Convey("Channel errors are returned", func() {
			ch.err = errors.New("channel closed by broker")
			So(p.Publish(context.Background(), e), ShouldNotBeNil)
		})

		Convey("Publishing after Close fails", func() {
			So(p.Close(), ShouldBeNil)
			So(ch.closed, ShouldBeTrue)
			So(errors.Is(p.Publish(context.Background(), e), ErrClosed), ShouldBeTrue)
			So(p.Close(), ShouldBeNil)
		})
	})
}

func TestLogPublisher(t *testing.T) {
	Convey("The log publisher writes one structured line per event", t, func() {
		var buf bytes.Buffer
		So(logger.InitWithFormat("json", &buf), ShouldBeNil)

		p := NewLog()
		err := p.Publish(context.Background(), model.Event{EventID: "evt-2", Type: model.EventCreated, TweetID: 4})
		So(err, ShouldBeNil)

		out := buf.String()
		So(strings.Count(out, "\n"), ShouldEqual, 1)
		So(out, ShouldContainSubstring, `"event_id":"evt-2"`)
		So(out, ShouldContainSubstring, `"type":"tweet.created"`)
		So(out, ShouldContainSubstring, `"tweet_id":4`)
	})
}
