// Package activity implements the updateUserActivity callable.
package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUnauthenticated is returned when the call carries no caller identity
	ErrUnauthenticated = errors.New("activity: caller is not authenticated")
	// ErrInternal wraps every storage failure, including an unknown user
	ErrInternal = errors.New("activity: internal error")
)

// Store stamps user activity
type Store interface {
	TouchUserActivity(ctx context.Context, id string, at time.Time) error
}

// Service backs the updateUserActivity callable
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an activity service
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// UpdateUserActivity stamps the caller's lastActive with the current time
func (s *Service) UpdateUserActivity(ctx context.Context, callerID string) error {
	if callerID == "" {
		return ErrUnauthenticated
	}
	if err := s.store.TouchUserActivity(ctx, callerID, s.now()); err != nil {
		s.logger.Error("update user activity", zap.String("user_id", callerID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return nil
}
