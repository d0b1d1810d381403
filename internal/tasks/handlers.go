package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/gymhub/internal/database/models"
	"gorm.io/gorm"
)

// DefaultRetentionDays applies when a prune task carries no retention.
const DefaultRetentionDays = 90

type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger, now: time.Now}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSecurityEvent, h.HandleSecurityEvent)
	mux.HandleFunc(TypePruneSecurityEvents, h.HandlePruneSecurityEvents)
}

// HandleSecurityEvent persists one rejected session. Malformed payloads are
// skipped rather than retried.
func (h *Handler) HandleSecurityEvent(ctx context.Context, t *asynq.Task) error {
	var payload SecurityEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = h.now().UTC()
	}

	event := models.SecurityEvent{
		Reason:         payload.Reason,
		Flow:           payload.Flow,
		ExpectedTenant: payload.ExpectedTenant,
		TokenTenant:    payload.TokenTenant,
		Subject:        payload.Subject,
		Path:           payload.Path,
		RemoteAddr:     payload.RemoteAddr,
		RequestID:      payload.RequestID,
		OccurredAt:     payload.OccurredAt,
	}
	if err := h.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("saving security event: %w", err)
	}

	h.logger.Info("security event recorded",
		"reason", event.Reason,
		"expected_tenant", event.ExpectedTenant,
		"token_tenant", event.TokenTenant,
		"subject", event.Subject,
	)
	return nil
}

// HandlePruneSecurityEvents deletes events older than the retention window.
func (h *Handler) HandlePruneSecurityEvents(ctx context.Context, t *asynq.Task) error {
	var payload PrunePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = DefaultRetentionDays
	}

	cutoff := h.now().UTC().AddDate(0, 0, -payload.RetentionDays)
	res := h.db.WithContext(ctx).Where("occurred_at < ?", cutoff).Delete(&models.SecurityEvent{})
	if res.Error != nil {
		return fmt.Errorf("pruning security events: %w", res.Error)
	}

	h.logger.Info("security events pruned", "deleted", res.RowsAffected, "cutoff", cutoff)
	return nil
}
