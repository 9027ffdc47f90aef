// Package notify delivers pushes to every device of a user, prunes dead
// registrations and keeps an in-app record of each notification.
package notify

import (
	"context"
	"errors"
	"fmt"

	"real-estate-matching/internal/models"
	"real-estate-matching/internal/push"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TokenStore reads and prunes a user's push registrations
type TokenStore interface {
	ListPushTokens(ctx context.Context, userID string) ([]string, error)
	RemovePushTokens(ctx context.Context, userID string, tokens []string) error
}

// NotificationStore persists in-app notification records
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Notifier is implemented by Dispatcher. Callers depend on this.
type Notifier interface {
	Notify(ctx context.Context, p Push) Delivery
}

// Push is a notification addressed to a user rather than to a device
type Push struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]string
}

// Outcome classifies a single token send
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeFailed    Outcome = "failed"
)

// TokenResult is the settled outcome of one send
type TokenResult struct {
	Token     string
	Outcome   Outcome
	MessageID string
	Err       error
}

// Delivery summarizes one Notify call
type Delivery struct {
	UserID         string
	Results        []TokenResult
	Pruned         []string
	NotificationID string
	Err            error
}

// Attempted reports whether any send was made
func (d Delivery) Attempted() bool {
	return len(d.Results) > 0
}

// Count returns how many sends ended with outcome o
func (d Delivery) Count(o Outcome) int {
	n := 0
	for _, r := range d.Results {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// Dispatcher fans a Push out to all of a user's tokens
type Dispatcher struct {
	tokens        TokenStore
	notifications NotificationStore
	sender        push.Sender
	logger        *zap.Logger
	newID         func() string
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(tokens TokenStore, notifications NotificationStore, sender push.Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		tokens:        tokens,
		notifications: notifications,
		sender:        sender,
		logger:        logger,
		newID:         uuid.NewString,
	}
}

// Notify sends p to every registered device of p.UserID. It never fails the
// caller: problems are logged and reported in Delivery.Err.
func (d *Dispatcher) Notify(ctx context.Context, p Push) Delivery {
	delivery := Delivery{UserID: p.UserID}
	log := d.logger.With(zap.String("user_id", p.UserID))

	tokens, err := d.tokens.ListPushTokens(ctx, p.UserID)
	if err != nil {
		log.Error("load push tokens", zap.Error(err))
		delivery.Err = fmt.Errorf("load push tokens: %w", err)
		return delivery
	}
	if len(tokens) == 0 {
		log.Debug("user has no registered devices")
		return delivery
	}

	delivery.Results = d.sendAll(ctx, tokens, p)

	var errs []error
	for _, r := range delivery.Results {
		if r.Outcome == OutcomeFailed {
			log.Warn("push send failed", zap.String("token", redact(r.Token)), zap.Error(r.Err))
		}
	}

	if invalid := invalidTokens(delivery.Results); len(invalid) > 0 {
		if err := d.tokens.RemovePushTokens(ctx, p.UserID, invalid); err != nil {
			log.Error("prune invalid push tokens", zap.Int("count", len(invalid)), zap.Error(err))
			errs = append(errs, fmt.Errorf("prune tokens: %w", err))
		} else {
			delivery.Pruned = invalid
			log.Info("pruned invalid push tokens", zap.Int("count", len(invalid)))
		}
	}

	// The in-app record is written whatever the per-device outcome
	record := &models.Notification{
		ID:     d.newID(),
		UserID: p.UserID,
		Title:  p.Title,
		Body:   p.Body,
		Data:   copyData(p.Data),
		Read:   false,
	}
	if err := d.notifications.CreateNotification(ctx, record); err != nil {
		log.Error("store notification", zap.Error(err))
		errs = append(errs, fmt.Errorf("store notification: %w", err))
	} else {
		delivery.NotificationID = record.ID
	}

	delivery.Err = errors.Join(errs...)

	log.Debug("notification dispatched",
		zap.Int("tokens", len(tokens)),
		zap.Int("delivered", delivery.Count(OutcomeDelivered)),
		zap.Int("invalid", delivery.Count(OutcomeInvalid)),
		zap.Int("failed", delivery.Count(OutcomeFailed)),
	)
	return delivery
}

// sendAll sends to every token concurrently and waits for all of them.
// Each goroutine records its own outcome and returns nil so that one failure
// never cancels the others.
func (d *Dispatcher) sendAll(ctx context.Context, tokens []string, p Push) []TokenResult {
	results := make([]TokenResult, len(tokens))

	var g errgroup.Group
	for i, token := range tokens {
		g.Go(func() error {
			results[i] = d.sendOne(ctx, token, p)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Dispatcher) sendOne(ctx context.Context, token string, p Push) (res TokenResult) {
	res.Token = token
	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("sender panic: %v", r)
		}
	}()

	id, err := d.sender.Send(ctx, push.Message{
		Token: token,
		Title: p.Title,
		Body:  p.Body,
		Data:  p.Data,
	})
	switch {
	case err == nil:
		res.Outcome = OutcomeDelivered
		res.MessageID = id
	case errors.Is(err, push.ErrUnregistered):
		res.Outcome = OutcomeInvalid
		res.Err = err
	default:
		res.Outcome = OutcomeFailed
		res.Err = err
	}
	return res
}

func invalidTokens(results []TokenResult) []string {
	var out []string
	for _, r := range results {
		if r.Outcome == OutcomeInvalid {
			out = append(out, r.Token)
		}
	}
	return out
}

func copyData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// redact keeps enough of a token to correlate log lines
func redact(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "…"
}
