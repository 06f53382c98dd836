// Package model contains domain models passed between layers.
package model

import "time"

// Tweet is the sole persisted entity. ID and the timestamps are owned by the
// store; only Message is ever taken from client input.
type Tweet struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Input is the projection of a create or update request body onto the
// mutable fields of a Tweet. Unknown body fields are dropped on decode.
type Input struct {
	Message string `json:"message"`
}

// Apply copies the mutable fields of in onto t.
func (in Input) Apply(t *Tweet) {
	t.Message = in.Message
}
