package smoketweets

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL    string        // Base URL of the service
	PathPrefix string        // Where the tweet routes are mounted
	NumTweets  int           // Number of tweets to create
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Verbose    bool          // Enable per-tweet logging
}

// Tweet mirrors the tweet resource as the server renders it.
type Tweet struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type tweetInput struct {
	Message string `json:"message"`
}

type listResponse struct {
	Tweets []Tweet `json:"tweets"`
}

type updateResponse struct {
	Tweet Tweet `json:"tweet"`
}

type errorResponse struct {
	Status  int      `json:"status"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// Stats holds smoke run statistics.
type Stats struct {
	Created   int64
	Read      int64
	Updated   int64
	Deleted   int64
	Verified  int64 // deleted tweets confirmed gone
	Rejected  int64 // invalid bodies answered with 400
	Failed    int64
	Listed    int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
