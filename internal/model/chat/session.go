package chat

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned by every store when the session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Session groups the transcript recorded by the gateway for one conversation.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
