package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
	granthikasql "github.com/vyasa-labs/granthika/sql"
)

// QueueDBHandlerFunctions defines the interface for validation-queue
// database operations.
type QueueDBHandlerFunctions interface {
	EnqueueEntry(entityKey string, priority int, notes string) (*model.QueueEntry, error)
	ClaimEntry(assignee string) (*model.QueueEntry, error)
	CompleteEntry(id uuid.UUID, notes string) error
	SkipEntry(id uuid.UUID) error
	SelectEntry(id uuid.UUID) (*model.QueueEntry, error)
	SelectEntries(status *model.QueueStatus, limit int) ([]*model.QueueEntry, error)
}

// QueueDBHandler handles validation-queue database operations
type QueueDBHandler struct {
	db *helper.Database
}

// NewQueueDBHandler creates a new queue database handler.
// It initializes the database connection and loads queue-related SQL
// functions. If force is true, it will reload the SQL functions even if
// they already exist.
func NewQueueDBHandler(db *helper.Database, force bool) (*QueueDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	queueDbHandler := &QueueDBHandler{
		db: db,
	}

	err := granthikasql.LoadQueueSql(queueDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load queue sql", err)
	}

	err = queueDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized QueueDBHandler")

	return queueDbHandler, nil
}

// CreateTable creates the 'validation_queue' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *QueueDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_queue();`)
	if err != nil {
		log.Panicf("error initializing validation_queue table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table validation_queue")

	return nil
}

// EnqueueEntry adds an entity to the validation queue. When an open entry
// for the entity already exists the higher priority wins and no duplicate
// is created. The entity must exist (ErrUnknownEntity otherwise).
func (h *QueueDBHandler) EnqueueEntry(entityKey string, priority int, notes string) (*model.QueueEntry, error) {
	if priority < model.QueuePriorityMin {
		priority = model.QueuePriorityMin
	}
	if priority > model.QueuePriorityMax {
		priority = model.QueuePriorityMax
	}

	entry := &model.QueueEntry{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM enqueue_entry($1, $2, $3)`,
		entityKey,
		priority,
		notes,
	)

	err := scanQueueEntry(row, entry)
	if err != nil {
		return nil, helper.NewError("scan", mapWriteError(err))
	}

	return entry, nil
}

// ClaimEntry atomically claims the highest-priority pending entry for an
// assignee. Concurrent claims never receive the same entry; when nothing is
// pending ErrClaimConflict is returned.
func (h *QueueDBHandler) ClaimEntry(assignee string) (*model.QueueEntry, error) {
	entry := &model.QueueEntry{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM claim_queue_entry($1)`,
		assignee,
	)

	err := scanQueueEntry(row, entry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrClaimConflict
	}
	if err != nil {
		return nil, helper.NewError("scan", mapWriteError(err))
	}

	return entry, nil
}

// CompleteEntry marks a claimed entry as completed
func (h *QueueDBHandler) CompleteEntry(id uuid.UUID, notes string) error {
	var noteArg *string
	if notes != "" {
		noteArg = &notes
	}

	var updated int
	err := h.db.Instance.QueryRow(
		`SELECT complete_queue_entry($1, $2)`,
		id,
		noteArg,
	).Scan(&updated)
	if err != nil {
		return helper.NewError("exec", mapWriteError(err))
	}
	if updated == 0 {
		return helper.NewError("complete queue entry", fmt.Errorf("no claimed entry with id %s", id))
	}
	return nil
}

// SkipEntry returns a claimed entry to pending with lowered priority
func (h *QueueDBHandler) SkipEntry(id uuid.UUID) error {
	var updated int
	err := h.db.Instance.QueryRow(
		`SELECT skip_queue_entry($1)`,
		id,
	).Scan(&updated)
	if err != nil {
		return helper.NewError("exec", mapWriteError(err))
	}
	if updated == 0 {
		return helper.NewError("skip queue entry", fmt.Errorf("no claimed entry with id %s", id))
	}
	return nil
}

// SelectEntry retrieves a queue entry by ID
func (h *QueueDBHandler) SelectEntry(id uuid.UUID) (*model.QueueEntry, error) {
	entry := &model.QueueEntry{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_queue_entry($1)`,
		id,
	)

	err := scanQueueEntry(row, entry)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entry, nil
}

// SelectEntries retrieves queue entries filtered by status, highest
// priority first. A nil status matches everything.
func (h *QueueDBHandler) SelectEntries(status *model.QueueStatus, limit int) ([]*model.QueueEntry, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_queue_entries($1, $2)`,
		status,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entries []*model.QueueEntry
	for rows.Next() {
		entry := &model.QueueEntry{}
		err := scanQueueEntry(rows, entry)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entries, nil
}

func scanQueueEntry(row scanRow, entry *model.QueueEntry) error {
	return row.Scan(
		&entry.ID,
		&entry.EntityKey,
		&entry.Priority,
		&entry.Assignee,
		&entry.Status,
		&entry.Notes,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
}
