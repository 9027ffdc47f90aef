// Package trigger holds the result contract shared by every background
// handler and the guard the hosts use to invoke them.
package trigger

import (
	"fmt"

	"go.uber.org/zap"
)

// Trigger names
const (
	ListingCreated = "onListingCreated"
	RequestCreated = "onRequestCreated"
	MessageCreated = "onMessageCreated"
)

// Result is what a trigger handler reports about one invocation. Handlers
// never return errors to their host; a failed invocation carries Err.
type Result struct {
	Trigger    string `json:"trigger"`
	EntityID   string `json:"entityId"`
	Skipped    bool   `json:"skipped,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Candidates int    `json:"candidates"`
	Matches    int    `json:"matches"`
	Notified   int    `json:"notified"`
	Err        error  `json:"-"`
}

// Failed reports whether the invocation hit an error
func (r Result) Failed() bool {
	return r.Err != nil
}

// Skip marks the result as a no-op with the given reason
func (r Result) Skip(reason string) Result {
	r.Skipped = true
	r.Reason = reason
	return r
}

// Fields renders the result as log fields
func (r Result) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("trigger", r.Trigger),
		zap.String("entity_id", r.EntityID),
		zap.Int("candidates", r.Candidates),
		zap.Int("matches", r.Matches),
		zap.Int("notified", r.Notified),
	}
	if r.Skipped {
		fields = append(fields, zap.Bool("skipped", true), zap.String("reason", r.Reason))
	}
	if r.Err != nil {
		fields = append(fields, zap.Error(r.Err))
	}
	return fields
}

// Guard runs fn, turning a panic into a failed Result, and logs the outcome.
// The returned Result is informational; hosts acknowledge the event anyway.
func Guard(logger *zap.Logger, name, entityID string, fn func() Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Trigger: name, EntityID: entityID, Err: fmt.Errorf("panic: %v", r)}
		}
		switch {
		case res.Failed():
			logger.Error("trigger failed", res.Fields()...)
		case res.Skipped:
			logger.Debug("trigger skipped", res.Fields()...)
		default:
			logger.Info("trigger completed", res.Fields()...)
		}
	}()
	return fn()
}
