package validation

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
)

// QueueStore is the slice of the queue handler the service depends on
type QueueStore interface {
	EnqueueEntry(entityKey string, priority int, notes string) (*model.QueueEntry, error)
	ClaimEntry(assignee string) (*model.QueueEntry, error)
	CompleteEntry(id uuid.UUID, notes string) error
	SkipEntry(id uuid.UUID) error
	SelectEntry(id uuid.UUID) (*model.QueueEntry, error)
	SelectEntries(status *model.QueueStatus, limit int) ([]*model.QueueEntry, error)
}

// EntityStore is the slice of the entities handler the service depends on
type EntityStore interface {
	SelectEntity(key string) (*model.Entity, error)
	UpdateEntityValidation(key string, status model.ValidationStatus) error
	UpdateEntityCorrection(key string, corrections *model.EntityCorrections) error
}

// Service runs the human review workflow: entities enter the queue with a
// derived priority, reviewers claim exclusively, and decisions flow back
// into the entity store. Rejection never deletes; the entity row stays with
// its status for audit.
type Service struct {
	queue    QueueStore
	entities EntityStore
	logger   *slog.Logger
}

// NewService creates a validation service over the given handlers
func NewService(queue QueueStore, entities EntityStore, logger *slog.Logger) *Service {
	return &Service{
		queue:    queue,
		entities: entities,
		logger:   logger,
	}
}

// Enqueue adds an entity to the review queue. Priority derives from the
// entity's mention count and extraction confidence: heavily mentioned,
// low-confidence entities surface first.
func (s *Service) Enqueue(entityKey string, notes string) (*model.QueueEntry, error) {
	entity, err := s.entities.SelectEntity(entityKey)
	if err != nil {
		return nil, helper.NewError("select entity", err)
	}

	priority := model.ReviewPriority(entity.MentionCount, entity.ExtractionConfidence)
	entry, err := s.queue.EnqueueEntry(entityKey, priority, notes)
	if err != nil {
		return nil, helper.NewError("enqueue entry", err)
	}

	s.logger.Debug("Enqueued entity for validation", "key", entityKey, "priority", entry.Priority)
	return entry, nil
}

// Claim assigns the highest-priority pending entry to a reviewer. Claims
// are exclusive: concurrent reviewers never receive the same entry. When
// nothing is claimable, ErrClaimConflict is returned and the caller may
// retry later.
func (s *Service) Claim(assignee string) (*model.QueueEntry, error) {
	entry, err := s.queue.ClaimEntry(assignee)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Claimed queue entry", "entry", entry.ID, "assignee", assignee)
	return entry, nil
}

// Resolve applies a reviewer decision to a claimed entry. Validate and
// reject set the entity's validation status; correct-and-validate applies
// the reviewer's edits first, marking the entity as hybrid.
func (s *Service) Resolve(entryID uuid.UUID, decision model.ValidationDecision) error {
	entry, err := s.queue.SelectEntry(entryID)
	if err != nil {
		return helper.NewError("select entry", err)
	}

	switch decision.Action {
	case model.ActionValidate:
		err = s.entities.UpdateEntityValidation(entry.EntityKey, model.ValidationValidated)
	case model.ActionReject:
		err = s.entities.UpdateEntityValidation(entry.EntityKey, model.ValidationRejected)
	case model.ActionCorrect:
		if decision.Corrections == nil {
			return fmt.Errorf("action %s requires corrections", decision.Action)
		}
		err = s.entities.UpdateEntityCorrection(entry.EntityKey, decision.Corrections)
		if err == nil {
			err = s.entities.UpdateEntityValidation(entry.EntityKey, model.ValidationValidated)
		}
	default:
		return fmt.Errorf("unknown validation action %q", decision.Action)
	}
	if err != nil {
		return helper.NewError("apply decision", err)
	}

	err = s.queue.CompleteEntry(entryID, decision.Notes)
	if err != nil {
		return helper.NewError("complete entry", err)
	}

	s.logger.Info("Resolved queue entry",
		"entry", entryID,
		"entity", entry.EntityKey,
		"action", decision.Action,
		"reviewer", decision.ReviewedBy,
	)
	return nil
}

// Skip returns a claimed entry to the pending pool with lowered priority
func (s *Service) Skip(entryID uuid.UUID) error {
	err := s.queue.SkipEntry(entryID)
	if err != nil {
		return helper.NewError("skip entry", err)
	}

	s.logger.Debug("Skipped queue entry", "entry", entryID)
	return nil
}

// Pending lists pending entries, highest priority first
func (s *Service) Pending(limit int) ([]*model.QueueEntry, error) {
	status := model.QueuePending
	return s.queue.SelectEntries(&status, limit)
}
