// Package push is the boundary to the push messaging provider.
package push

import (
	"context"
	"errors"
)

// ErrUnregistered marks a send that failed because the provider reports the
// registration token as permanently invalid. Any other error is transient.
var ErrUnregistered = errors.New("push: registration token not registered")

// Message is one push addressed to a single device token
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers a message to one token and returns the provider message id
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}
