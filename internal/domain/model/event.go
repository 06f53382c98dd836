package model

import "time"

// EventType names a tweet lifecycle change.
type EventType string

// Tweet lifecycle changes published after a successful mutation.
const (
	EventCreated EventType = "tweet.created"
	EventUpdated EventType = "tweet.updated"
	EventDeleted EventType = "tweet.deleted"
)

// Event describes one tweet change flowing through the event queue.
type Event struct {
	EventID string    `json:"event_id"` // unique per change
	Type    EventType `json:"type"`
	TweetID int64     `json:"tweet_id"`
	Message string    `json:"message,omitempty"` // empty for deletions
	At      time.Time `json:"at"`
}
