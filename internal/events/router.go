// Package events routes document-creation events to the trigger handlers.
package events

import (
	"context"
	"errors"
	"fmt"

	"real-estate-matching/internal/database"
	"real-estate-matching/internal/models"
	"real-estate-matching/internal/trigger"

	"go.uber.org/zap"
)

// Documents loads the stored copy of a created document
type Documents interface {
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	GetRequest(ctx context.Context, id string) (*models.Request, error)
}

// Recorder stores posted documents. Only the in-memory store uses it, since
// nothing else writes documents into it.
type Recorder interface {
	PutListing(l models.Listing)
	PutRequest(r models.Request)
}

// Matcher runs the listing and request triggers
type Matcher interface {
	OnListingCreated(ctx context.Context, listing *models.Listing) trigger.Result
	OnRequestCreated(ctx context.Context, request *models.Request) trigger.Result
}

// MessageHandler runs the message trigger
type MessageHandler interface {
	OnMessageCreated(ctx context.Context, conversationID string, msg *models.Message) trigger.Result
}

// ListingIndexer adds listings to the search index
type ListingIndexer interface {
	IndexListing(listing *models.Listing) error
}

// Router is the single entry point used by every host (HTTP, Kafka). An
// event only names a document; the triggers run on the stored copy.
type Router struct {
	docs     Documents
	recorder Recorder
	matcher  Matcher
	messages MessageHandler
	indexer  ListingIndexer
	logger   *zap.Logger
}

// NewRouter creates a Router. indexer may be nil when search is disabled.
func NewRouter(docs Documents, matcher Matcher, messages MessageHandler, indexer ListingIndexer, logger *zap.Logger) *Router {
	return &Router{docs: docs, matcher: matcher, messages: messages, indexer: indexer, logger: logger}
}

// RecordPayloads makes the router store every posted listing and request
// before loading it back
func (r *Router) RecordPayloads(rec Recorder) *Router {
	r.recorder = rec
	return r
}

func (r *Router) ListingCreated(ctx context.Context, posted *models.Listing) trigger.Result {
	return trigger.Guard(r.logger, trigger.ListingCreated, posted.ID, func() trigger.Result {
		res := trigger.Result{Trigger: trigger.ListingCreated, EntityID: posted.ID}
		if r.recorder != nil {
			r.recorder.PutListing(*posted)
		}

		listing, err := r.docs.GetListing(ctx, posted.ID)
		if errors.Is(err, database.ErrNotFound) {
			return res.Skip("listing not in store")
		}
		if err != nil {
			res.Err = fmt.Errorf("load listing: %w", err)
			return res
		}

		if r.indexer != nil {
			if err := r.indexer.IndexListing(listing); err != nil {
				r.logger.Warn("index listing", zap.String("listing_id", listing.ID), zap.Error(err))
			}
		}
		return r.matcher.OnListingCreated(ctx, listing)
	})
}

func (r *Router) RequestCreated(ctx context.Context, posted *models.Request) trigger.Result {
	return trigger.Guard(r.logger, trigger.RequestCreated, posted.ID, func() trigger.Result {
		res := trigger.Result{Trigger: trigger.RequestCreated, EntityID: posted.ID}
		if r.recorder != nil {
			r.recorder.PutRequest(*posted)
		}

		request, err := r.docs.GetRequest(ctx, posted.ID)
		if errors.Is(err, database.ErrNotFound) {
			return res.Skip("request not in store")
		}
		if err != nil {
			res.Err = fmt.Errorf("load request: %w", err)
			return res
		}
		return r.matcher.OnRequestCreated(ctx, request)
	})
}

func (r *Router) MessageCreated(ctx context.Context, conversationID string, msg *models.Message) trigger.Result {
	return trigger.Guard(r.logger, trigger.MessageCreated, msg.ID, func() trigger.Result {
		return r.messages.OnMessageCreated(ctx, conversationID, msg)
	})
}
