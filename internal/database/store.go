// Package database holds the storage backends of the matching service.
//
// Three implementations share one contract: GormStore (MySQL through gorm),
// PostgresStore (database/sql with lib/pq) and MemoryStore. Consumers declare
// the narrow interfaces they need; Store is the union the process wires.
package database

import (
	"context"
	"errors"
	"time"

	"real-estate-matching/internal/models"
)

// ErrNotFound is returned when a looked-up record does not exist
var ErrNotFound = errors.New("database: record not found")

// Store is everything the service reads and writes
type Store interface {
	// Documents by id
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	GetListings(ctx context.Context, ids []string) ([]models.Listing, error)
	GetRequest(ctx context.Context, id string) (*models.Request, error)

	// Candidate queries
	FindMatchingRequests(ctx context.Context, listing *models.Listing) ([]models.Request, error)
	FindMatchingListings(ctx context.Context, request *models.Request) ([]models.Listing, error)
	ListActiveListings(ctx context.Context) ([]models.Listing, error)

	// Matches
	SaveMatches(ctx context.Context, matches []models.Match) error
	ListMatches(ctx context.Context, requestID string) ([]models.Match, error)

	// Push tokens and notifications
	ListPushTokens(ctx context.Context, userID string) ([]string, error)
	RemovePushTokens(ctx context.Context, userID string, tokens []string) error
	CreateNotification(ctx context.Context, n *models.Notification) error

	// Users and conversations
	GetUser(ctx context.Context, id string) (*models.User, error)
	TouchUserActivity(ctx context.Context, id string, at time.Time) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)

	// Maintenance jobs
	FindStaleListings(ctx context.Context, status models.ListingStatus, before time.Time) ([]models.Listing, error)
	MarkListingsExpired(ctx context.Context, ids []string) (int64, error)
	CountCreatedBetween(ctx context.Context, coll models.Collection, from, to time.Time) (int64, error)
	SaveDailyAnalytics(ctx context.Context, a *models.DailyAnalytics) error

	Close() error
}

// tableFor maps a countable collection to its table
func tableFor(coll models.Collection) (string, error) {
	switch coll {
	case models.CollectionUsers:
		return models.User{}.TableName(), nil
	case models.CollectionListings:
		return models.Listing{}.TableName(), nil
	case models.CollectionRequests:
		return models.Request{}.TableName(), nil
	}
	return "", errors.New("database: unknown collection " + string(coll))
}

var (
	_ Store = (*GormStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
