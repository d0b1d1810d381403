package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/gymhub/internal/auth"
)

// Task type names
const (
	TypeSecurityEvent       = "security:session_rejected"
	TypePruneSecurityEvents = "security:prune"
)

// SecurityEventPayload is a rejected session as published by the validator.
type SecurityEventPayload = auth.RejectionEvent

func NewSecurityEventTask(payload SecurityEventPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSecurityEvent, data,
		asynq.Queue("critical"),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	), nil
}

// PrunePayload controls how long security events are kept.
type PrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

func NewPruneTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(PrunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePruneSecurityEvents, data, asynq.Queue("low")), nil
}
