package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"real-estate-matching/internal/config"
	"real-estate-matching/internal/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Read retry backoff bounds
const (
	minReadBackoff = 500 * time.Millisecond
	maxReadBackoff = 30 * time.Second
)

// messageReader is the part of *kafka.Reader the consumer uses
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads document-creation events from Kafka and hands them to the
// Router one at a time.
type Consumer struct {
	reader messageReader
	router *Router
	topics config.KafkaConfig
	logger *zap.Logger

	minBackoff, maxBackoff time.Duration
}

// NewConsumer creates a consumer group reader over the three event topics
func NewConsumer(cfg config.KafkaConfig, router *Router, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: []string{cfg.ListingsTopic, cfg.RequestsTopic, cfg.MessagesTopic},
	})
	return &Consumer{
		reader:     reader,
		router:     router,
		topics:     cfg,
		logger:     logger,
		minBackoff: minReadBackoff,
		maxBackoff: maxReadBackoff,
	}
}

// Run consumes until ctx is done. Read errors are retried with exponential
// backoff; undecodable events are logged and skipped; trigger failures never
// stop the loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := c.minBackoff
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			// A closed reader reports io.EOF
			if errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Warn("kafka read failed, retrying", zap.Duration("backoff", backoff), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
			continue
		}
		backoff = c.minBackoff

		if err := c.handle(ctx, msg); err != nil {
			c.logger.Warn("skipping event",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	switch msg.Topic {
	case c.topics.ListingsTopic:
		var listing models.Listing
		if err := json.Unmarshal(msg.Value, &listing); err != nil {
			return fmt.Errorf("decode listing: %w", err)
		}
		c.router.ListingCreated(ctx, &listing)
	case c.topics.RequestsTopic:
		var request models.Request
		if err := json.Unmarshal(msg.Value, &request); err != nil {
			return fmt.Errorf("decode request: %w", err)
		}
		c.router.RequestCreated(ctx, &request)
	case c.topics.MessagesTopic:
		var message models.Message
		if err := json.Unmarshal(msg.Value, &message); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		if message.ConversationID == "" {
			return errors.New("message without conversationId")
		}
		c.router.MessageCreated(ctx, message.ConversationID, &message)
	default:
		return fmt.Errorf("unexpected topic %q", msg.Topic)
	}
	return nil
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
