package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"real-estate-matching/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStore is the MySQL backend
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(host, port, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return NewGormStoreFromDB(db), nil
}

// NewGormStoreFromDB wraps an existing gorm.DB instance
func NewGormStoreFromDB(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (s *GormStore) InitSchema() error {
	return s.db.AutoMigrate(
		&models.Listing{},
		&models.Request{},
		&models.Match{},
		&models.User{},
		&models.PushToken{},
		&models.Notification{},
		&models.Conversation{},
		&models.DailyAnalytics{},
	)
}

func (s *GormStore) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	var listing models.Listing
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetListings loads the stored listings among ids. Unknown ids are left out.
func (s *GormStore) GetListings(ctx context.Context, ids []string) ([]models.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var listings []models.Listing
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&listings).Error
	return listings, err
}

func (s *GormStore) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	var request models.Request
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (s *GormStore) FindMatchingRequests(ctx context.Context, listing *models.Listing) ([]models.Request, error) {
	var requests []models.Request
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Where("transaction_type = ? AND property_type = ?", listing.TransactionType, listing.PropertyType).
		Where("budget_min <= ? AND budget_max >= ?", listing.Price, listing.Price).
		Find(&requests).Error
	return requests, err
}

func (s *GormStore) FindMatchingListings(ctx context.Context, request *models.Request) ([]models.Listing, error) {
	var listings []models.Listing
	err := s.db.WithContext(ctx).
		Where("status = ?", models.ListingStatusActive).
		Where("transaction_type = ? AND property_type = ?", request.TransactionType, request.PropertyType).
		Where("price BETWEEN ? AND ?", request.BudgetMin, request.BudgetMax).
		Find(&listings).Error
	return listings, err
}

func (s *GormStore) ListActiveListings(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	err := s.db.WithContext(ctx).
		Where("status = ?", models.ListingStatusActive).
		Order("created_at DESC").
		Find(&listings).Error
	return listings, err
}

// SaveMatches upserts all matches in one transaction
func (s *GormStore) SaveMatches(ctx context.Context, matches []models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	now := s.db.NowFunc()
	for i := range matches {
		matches[i].MatchedAt = now
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "request_id"}, {Name: "listing_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"matched_at", "distance", "score"}),
		}).Create(&matches).Error
	})
}

func (s *GormStore) ListMatches(ctx context.Context, requestID string) ([]models.Match, error) {
	var matches []models.Match
	err := s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("score DESC").
		Find(&matches).Error
	return matches, err
}

func (s *GormStore) ListPushTokens(ctx context.Context, userID string) ([]string, error) {
	var tokens []string
	err := s.db.WithContext(ctx).
		Model(&models.PushToken{}).
		Where("user_id = ?", userID).
		Pluck("token", &tokens).Error
	return tokens, err
}

// RemovePushTokens deletes exactly the given tokens of one user
func (s *GormStore) RemovePushTokens(ctx context.Context, userID string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("user_id = ? AND token IN ?", userID, tokens).
		Delete(&models.PushToken{}).Error
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) TouchUserActivity(ctx context.Context, id string, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_active", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *GormStore) FindStaleListings(ctx context.Context, status models.ListingStatus, before time.Time) ([]models.Listing, error) {
	var listings []models.Listing
	err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, before).
		Find(&listings).Error
	return listings, err
}

// MarkListingsExpired flips status without bumping updated_at
func (s *GormStore) MarkListingsExpired(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id IN ? AND status <> ?", ids, models.ListingStatusExpired).
		UpdateColumn("status", models.ListingStatusExpired)
	return result.RowsAffected, result.Error
}

func (s *GormStore) CountCreatedBetween(ctx context.Context, coll models.Collection, from, to time.Time) (int64, error) {
	table, err := tableFor(coll)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.db.WithContext(ctx).
		Table(table).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&n).Error
	return n, err
}

// SaveDailyAnalytics upserts by record id
func (s *GormStore) SaveDailyAnalytics(ctx context.Context, a *models.DailyAnalytics) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"date", "new_users", "new_listings", "new_requests", "generated_at"}),
	}).Create(a).Error
}
