// Package messaging notifies the other participant of a conversation when a
// message is posted.
package messaging

import (
	"context"
	"errors"
	"fmt"

	"real-estate-matching/internal/database"
	"real-estate-matching/internal/models"
	"real-estate-matching/internal/notify"
	"real-estate-matching/internal/trigger"

	"go.uber.org/zap"
)

const (
	fallbackTitle  = "Nouveau message"
	attachmentBody = "Fichier joint"
)

// Store reads the conversation and its sender
type Store interface {
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Service runs the message trigger
type Service struct {
	store    Store
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewService creates a Service
func NewService(store Store, notifier notify.Notifier, logger *zap.Logger) *Service {
	return &Service{store: store, notifier: notifier, logger: logger}
}

// OnMessageCreated pushes msg to the recipient of the conversation
func (s *Service) OnMessageCreated(ctx context.Context, conversationID string, msg *models.Message) trigger.Result {
	res := trigger.Result{Trigger: trigger.MessageCreated, EntityID: msg.ID}
	log := s.logger.With(zap.String("conversation_id", conversationID), zap.String("message_id", msg.ID))

	conv, err := s.store.GetConversation(ctx, conversationID)
	if errors.Is(err, database.ErrNotFound) {
		return res.Skip("conversation not found")
	}
	if err != nil {
		log.Error("load conversation", zap.Error(err))
		res.Err = fmt.Errorf("load conversation: %w", err)
		return res
	}

	if !conv.HasParticipant(msg.SenderID) {
		log.Warn("sender is not a participant", zap.String("sender_id", msg.SenderID))
		return res.Skip("sender not in conversation")
	}

	recipient, ok := conv.OtherParticipant(msg.SenderID)
	if !ok {
		return res.Skip("no recipient")
	}

	title := fallbackTitle
	sender, err := s.store.GetUser(ctx, msg.SenderID)
	switch {
	case err == nil && sender.FirstName != "":
		title = sender.FirstName
	case err != nil && !errors.Is(err, database.ErrNotFound):
		log.Warn("load sender", zap.String("sender_id", msg.SenderID), zap.Error(err))
	}

	body := attachmentBody
	if msg.Type == models.MessageTypeText {
		body = msg.Text
	}

	d := s.notifier.Notify(ctx, notify.Push{
		UserID: recipient,
		Title:  title,
		Body:   body,
		Data: map[string]string{
			"type":           models.NotificationTypeMessage,
			"conversationId": conversationID,
			"senderId":       msg.SenderID,
		},
	})
	res.Candidates = 1
	if d.Attempted() {
		res.Notified = 1
	}
	return res
}
