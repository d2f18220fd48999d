package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// QueueStatus represents the review state of a validation queue entry
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueueInReview  QueueStatus = "in_review"
	QueueCompleted QueueStatus = "completed"
	QueueSkipped   QueueStatus = "skipped"
)

// QueueEntry is one assignable unit of validation work
type QueueEntry struct {
	ID        uuid.UUID   `json:"id"`
	EntityKey string      `json:"entity_key"`
	Priority  int         `json:"priority"` // 1 (lowest) to 10 (highest)
	Assignee  string      `json:"assignee,omitempty"`
	Status    QueueStatus `json:"status"`
	Notes     string      `json:"notes,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

const (
	QueuePriorityMin = 1
	QueuePriorityMax = 10
)

// ReviewPriority derives a 1-10 queue priority from an entity's mention
// count and extraction confidence. Heavily mentioned, low-confidence
// entities surface first.
func ReviewPriority(mentionCount int, confidence float64) int {
	mentionWeight := math.Log1p(float64(mentionCount)) // saturates slowly
	uncertainty := 1 - confidence
	p := int(math.Round(1 + mentionWeight + uncertainty*5))
	if p < QueuePriorityMin {
		p = QueuePriorityMin
	}
	if p > QueuePriorityMax {
		p = QueuePriorityMax
	}
	return p
}

// ValidationAction is a reviewer decision on a queue entry
type ValidationAction string

const (
	ActionValidate ValidationAction = "validate"
	ActionReject   ValidationAction = "reject"
	ActionCorrect  ValidationAction = "correct-and-validate"
)

// ValidationDecision carries the reviewer decision for Resolve
type ValidationDecision struct {
	Action      ValidationAction   `json:"action"`
	Corrections *EntityCorrections `json:"corrections,omitempty"` // required for ActionCorrect
	ReviewedBy  string             `json:"reviewed_by"`
	Notes       string             `json:"notes,omitempty"`
}

// EntityCorrections holds reviewer edits applied before validation
type EntityCorrections struct {
	Type   EntityType `json:"entity_type,omitempty"`
	Labels Labels     `json:"labels,omitempty"`
}
