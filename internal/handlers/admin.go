package handlers

import (
	"context"
	"net/http"

	"real-estate-matching/internal/cleanup"
	"real-estate-matching/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Jobs are the scheduled jobs that can be run on demand
type Jobs interface {
	ExpiryConfig() cleanup.ExpiryConfig
	RunExpiryNow(ctx context.Context, cfg cleanup.ExpiryConfig) (*cleanup.ExpiryResult, error)
	RunAnalyticsNow(ctx context.Context) (*models.DailyAnalytics, error)
}

// ListingSource lists the listings to put in the search index
type ListingSource interface {
	ListActiveListings(ctx context.Context) ([]models.Listing, error)
}

// BulkIndexer swaps the search index contents for the given listings
type BulkIndexer interface {
	ReplaceListings(listings []models.Listing) error
}

// AdminHandler handles admin-related requests
type AdminHandler struct {
	jobs     Jobs
	listings ListingSource
	indexer  BulkIndexer
	logger   *zap.Logger
}

// NewAdminHandler creates a new admin handler. indexer may be nil when search
// is disabled.
func NewAdminHandler(jobs Jobs, listings ListingSource, indexer BulkIndexer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		jobs:     jobs,
		listings: listings,
		indexer:  indexer,
		logger:   logger,
	}
}

// RunExpiry executes the stale listing sweep
func (h *AdminHandler) RunExpiry(c *gin.Context) {
	var req struct {
		RetentionDays int   `json:"retention_days"` // Days to keep (default: configured)
		DryRun        *bool `json:"dry_run"`        // Dry run mode (default: configured)
	}

	// An empty body keeps the configured values
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	config := h.jobs.ExpiryConfig()
	if req.RetentionDays > 0 {
		config.RetentionDays = req.RetentionDays
	}
	if req.DryRun != nil {
		config.DryRun = *req.DryRun
	}

	result, err := h.jobs.RunExpiryNow(c.Request.Context(), config)
	if err != nil {
		h.logger.Error("admin: expiry failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RunAnalytics aggregates the previous day
func (h *AdminHandler) RunAnalytics(c *gin.Context) {
	record, err := h.jobs.RunAnalyticsNow(c.Request.Context())
	if err != nil {
		h.logger.Error("admin: analytics failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, record)
}

// ReindexListings rebuilds the search index from the store in the background.
// Documents of listings that are no longer active are dropped.
func (h *AdminHandler) ReindexListings(c *gin.Context) {
	if h.indexer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Search is not enabled",
		})
		return
	}

	h.logger.Info("admin: reindex requested")

	// Run in goroutine to avoid blocking
	go func() {
		ctx := context.Background()
		listings, err := h.listings.ListActiveListings(ctx)
		if err != nil {
			h.logger.Error("admin: reindex failed to load listings", zap.Error(err))
			return
		}
		if err := h.indexer.ReplaceListings(listings); err != nil {
			h.logger.Error("admin: reindex failed", zap.Error(err))
			return
		}
		h.logger.Info("admin: reindex completed", zap.Int("listings", len(listings)))
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Reindex job started",
		"status":  "running",
	})
}

// MatchLister reads stored matches
type MatchLister interface {
	ListMatches(ctx context.Context, requestID string) ([]models.Match, error)
}

// MatchesHandler exposes stored matches for inspection
type MatchesHandler struct {
	matches MatchLister
}

func NewMatchesHandler(matches MatchLister) *MatchesHandler {
	return &MatchesHandler{matches: matches}
}

// GetRequestMatches returns the matches of one request, best score first
func (h *MatchesHandler) GetRequestMatches(c *gin.Context) {
	requestID := c.Param("id")
	matches, err := h.matches.ListMatches(c.Request.Context(), requestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if matches == nil {
		matches = []models.Match{}
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id": requestID,
		"matches":    matches,
		"count":      len(matches),
	})
}
