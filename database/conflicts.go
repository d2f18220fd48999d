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

// ConflictsDBHandlerFunctions defines the interface for conflict database
// operations.
type ConflictsDBHandlerFunctions interface {
	InsertConflict(conflict *model.Conflict) (bool, error)
	SelectConflict(id uuid.UUID) (*model.Conflict, error)
	SelectConflicts(status *model.ConflictStatus, conflictType *model.ConflictType, limit int) ([]*model.Conflict, error)
	ResolveConflict(id uuid.UUID, status model.ConflictStatus, resolvedBy string) error
}

// ConflictsDBHandler handles conflict-related database operations
type ConflictsDBHandler struct {
	db *helper.Database
}

// NewConflictsDBHandler creates a new conflicts database handler.
// It initializes the database connection and loads conflict-related SQL
// functions. If force is true, it will reload the SQL functions even if
// they already exist.
func NewConflictsDBHandler(db *helper.Database, force bool) (*ConflictsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	conflictsDbHandler := &ConflictsDBHandler{
		db: db,
	}

	err := granthikasql.LoadConflictsSql(conflictsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load conflicts sql", err)
	}

	err = conflictsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ConflictsDBHandler")

	return conflictsDbHandler, nil
}

// CreateTable creates the 'conflicts' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *ConflictsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_conflicts();`)
	if err != nil {
		log.Panicf("error initializing conflicts table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table conflicts")

	return nil
}

// InsertConflict records a detected conflict. Inserting a conflict whose
// signature matches an unresolved one is a no-op; the returned bool reports
// whether a new record was created.
func (h *ConflictsDBHandler) InsertConflict(conflict *model.Conflict) (bool, error) {
	if conflict.Signature == "" {
		conflict.Signature = model.ConflictSignature(conflict.Type, conflict.EntityKeys)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_conflict($1, $2, $3, $4, $5)`,
		conflict.Type,
		conflict.Signature,
		model.KeyList(conflict.EntityKeys),
		conflict.Description,
		conflict.SuggestedResolution,
	)

	err := scanConflict(row, conflict)
	if errors.Is(err, sql.ErrNoRows) {
		// An unresolved conflict with this signature already exists.
		return false, nil
	}
	if err != nil {
		return false, helper.NewError("scan", mapWriteError(err))
	}

	return true, nil
}

// SelectConflict retrieves a conflict by ID
func (h *ConflictsDBHandler) SelectConflict(id uuid.UUID) (*model.Conflict, error) {
	conflict := &model.Conflict{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_conflict($1)`,
		id,
	)

	err := scanConflict(row, conflict)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return conflict, nil
}

// SelectConflicts retrieves conflicts filtered by status and type. Nil
// filters match everything.
func (h *ConflictsDBHandler) SelectConflicts(status *model.ConflictStatus, conflictType *model.ConflictType, limit int) ([]*model.Conflict, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_conflicts($1, $2, $3)`,
		status,
		conflictType,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var conflicts []*model.Conflict
	for rows.Next() {
		conflict := &model.Conflict{}
		err := scanConflict(rows, conflict)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		conflicts = append(conflicts, conflict)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return conflicts, nil
}

// ResolveConflict transitions a pending conflict to resolved or ignored
func (h *ConflictsDBHandler) ResolveConflict(id uuid.UUID, status model.ConflictStatus, resolvedBy string) error {
	var updated int
	err := h.db.Instance.QueryRow(
		`SELECT resolve_conflict($1, $2, $3)`,
		id,
		status,
		resolvedBy,
	).Scan(&updated)
	if err != nil {
		return helper.NewError("exec", mapWriteError(err))
	}
	if updated == 0 {
		return helper.NewError("resolve conflict", fmt.Errorf("no pending conflict with id %s", id))
	}
	return nil
}

func scanConflict(row scanRow, conflict *model.Conflict) error {
	var keys model.KeyList
	err := row.Scan(
		&conflict.ID,
		&conflict.Type,
		&conflict.Signature,
		&keys,
		&conflict.Description,
		&conflict.SuggestedResolution,
		&conflict.Status,
		&conflict.ResolvedBy,
		&conflict.ResolvedAt,
		&conflict.CreatedAt,
	)
	if err != nil {
		return err
	}

	conflict.EntityKeys = keys
	return nil
}
