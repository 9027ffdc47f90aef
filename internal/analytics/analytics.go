// Package analytics aggregates daily creation counts.
package analytics

import (
	"context"
	"fmt"
	"time"

	"real-estate-matching/internal/models"

	"go.uber.org/zap"
)

// DefaultTimezone is the reporting zone of the marketplace
const DefaultTimezone = "Africa/Conakry"

// Store counts created documents and keeps the daily records
type Store interface {
	CountCreatedBetween(ctx context.Context, coll models.Collection, from, to time.Time) (int64, error)
	SaveDailyAnalytics(ctx context.Context, a *models.DailyAnalytics) error
}

// Service aggregates daily analytics in a fixed time zone
type Service struct {
	store  Store
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an analytics service reporting in loc
func NewService(store Store, loc *time.Location, logger *zap.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, loc: loc, logger: logger, now: time.Now}
}

// LoadLocation resolves name, falling back to DefaultTimezone when empty
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// DayBounds returns [start, end) of the calendar day containing t in loc
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// GenerateDaily aggregates the previous calendar day
func (s *Service) GenerateDaily(ctx context.Context) (*models.DailyAnalytics, error) {
	today, _ := DayBounds(s.now(), s.loc)
	return s.GenerateForDay(ctx, today.AddDate(0, 0, -1))
}

// GenerateForDay counts the users, listings and requests created on day and
// upserts the daily_YYYY-MM-DD record. Running it twice overwrites.
func (s *Service) GenerateForDay(ctx context.Context, day time.Time) (*models.DailyAnalytics, error) {
	from, to := DayBounds(day, s.loc)

	counts := make(map[models.Collection]int64, 3)
	for _, coll := range []models.Collection{models.CollectionUsers, models.CollectionListings, models.CollectionRequests} {
		n, err := s.store.CountCreatedBetween(ctx, coll, from, to)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", coll, err)
		}
		counts[coll] = n
	}

	record := &models.DailyAnalytics{
		ID:          models.DailyAnalyticsID(from),
		Date:        from,
		NewUsers:    counts[models.CollectionUsers],
		NewListings: counts[models.CollectionListings],
		NewRequests: counts[models.CollectionRequests],
		GeneratedAt: s.now(),
	}
	if err := s.store.SaveDailyAnalytics(ctx, record); err != nil {
		return nil, fmt.Errorf("save %s: %w", record.ID, err)
	}

	s.logger.Info("daily analytics generated",
		zap.String("id", record.ID),
		zap.Int64("new_users", record.NewUsers),
		zap.Int64("new_listings", record.NewListings),
		zap.Int64("new_requests", record.NewRequests),
	)
	return record, nil
}
