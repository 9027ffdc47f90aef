package handlers

import (
	"context"
	"net/http"

	"real-estate-matching/internal/models"
	"real-estate-matching/internal/trigger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventRouter dispatches created documents to the trigger handlers
type EventRouter interface {
	ListingCreated(ctx context.Context, listing *models.Listing) trigger.Result
	RequestCreated(ctx context.Context, request *models.Request) trigger.Result
	MessageCreated(ctx context.Context, conversationID string, msg *models.Message) trigger.Result
}

// TriggerHandler exposes the document-creation triggers over HTTP. Every
// delivery is acknowledged with 200 so the publisher never retries.
type TriggerHandler struct {
	router EventRouter
	logger *zap.Logger
}

// NewTriggerHandler creates a new trigger handler
func NewTriggerHandler(router EventRouter, logger *zap.Logger) *TriggerHandler {
	return &TriggerHandler{router: router, logger: logger}
}

// ListingCreated handles POST /triggers/listings
func (h *TriggerHandler) ListingCreated(c *gin.Context) {
	var listing models.Listing
	if err := c.ShouldBindJSON(&listing); err != nil || listing.ID == "" {
		h.ignore(c, "listing", err)
		return
	}
	respond(c, h.router.ListingCreated(c.Request.Context(), &listing))
}

// RequestCreated handles POST /triggers/requests
func (h *TriggerHandler) RequestCreated(c *gin.Context) {
	var request models.Request
	if err := c.ShouldBindJSON(&request); err != nil || request.ID == "" {
		h.ignore(c, "request", err)
		return
	}
	respond(c, h.router.RequestCreated(c.Request.Context(), &request))
}

// MessageCreated handles POST /triggers/conversations/:id/messages
func (h *TriggerHandler) MessageCreated(c *gin.Context) {
	var msg models.Message
	if err := c.ShouldBindJSON(&msg); err != nil || msg.ID == "" {
		h.ignore(c, "message", err)
		return
	}
	conversationID := c.Param("id")
	msg.ConversationID = conversationID
	respond(c, h.router.MessageCreated(c.Request.Context(), conversationID, &msg))
}

func (h *TriggerHandler) ignore(c *gin.Context, kind string, err error) {
	fields := []zap.Field{zap.String("kind", kind)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	h.logger.Warn("ignoring malformed trigger payload", fields...)
	c.JSON(http.StatusOK, gin.H{"status": "ignored"})
}

func respond(c *gin.Context, res trigger.Result) {
	body := gin.H{"status": "ok", "result": res}
	if res.Failed() {
		body["status"] = "failed"
		body["error"] = res.Err.Error()
	}
	c.JSON(http.StatusOK, body)
}
