package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
	granthikasql "github.com/vyasa-labs/granthika/sql"
)

// SessionsDBHandlerFunctions defines the interface for discovery-session
// database operations.
type SessionsDBHandlerFunctions interface {
	InsertSession(session *model.DiscoverySession) error
	UpdateSessionProgress(id uuid.UUID, processed int, skipped int, entitiesFound int, lastUnitID string) error
	UpdateSessionStatus(id uuid.UUID, status model.SessionStatus, lastError string) error
	SelectSession(id uuid.UUID) (*model.DiscoverySession, error)
	SelectActiveSession() (*model.DiscoverySession, error)
	SelectRecentSessions(limit int) ([]*model.DiscoverySession, error)
}

// SessionsDBHandler handles discovery-session database operations
type SessionsDBHandler struct {
	db *helper.Database
}

// NewSessionsDBHandler creates a new sessions database handler.
// It initializes the database connection and loads session-related SQL
// functions. If force is true, it will reload the SQL functions even if
// they already exist.
func NewSessionsDBHandler(db *helper.Database, force bool) (*SessionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	sessionsDbHandler := &SessionsDBHandler{
		db: db,
	}

	err := granthikasql.LoadSessionsSql(sessionsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load sessions sql", err)
	}

	err = sessionsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized SessionsDBHandler")

	return sessionsDbHandler, nil
}

// CreateTable creates the 'discovery_sessions' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *SessionsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_sessions();`)
	if err != nil {
		log.Panicf("error initializing discovery_sessions table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table discovery_sessions")

	return nil
}

// InsertSession creates a new discovery session. At most one session may be
// running or paused; starting a second one returns ErrSessionAlreadyActive.
func (h *SessionsDBHandler) InsertSession(session *model.DiscoverySession) error {
	settings, err := json.Marshal(session.Settings)
	if err != nil {
		return helper.NewError("marshal settings", err)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_session($1, $2, $3)`,
		session.ID,
		settings,
		session.TotalUnits,
	)

	err = scanSession(row, session)
	if err != nil {
		return helper.NewError("scan", mapWriteError(err))
	}

	return nil
}

// UpdateSessionProgress persists the session counters after a processed unit
func (h *SessionsDBHandler) UpdateSessionProgress(id uuid.UUID, processed int, skipped int, entitiesFound int, lastUnitID string) error {
	var updated int
	err := h.db.Instance.QueryRow(
		`SELECT update_session_progress($1, $2, $3, $4, $5)`,
		id,
		processed,
		skipped,
		entitiesFound,
		lastUnitID,
	).Scan(&updated)
	if err != nil {
		return helper.NewError("exec", mapWriteError(err))
	}
	if updated == 0 {
		return helper.NewError("update session progress", fmt.Errorf("session %s not found", id))
	}
	return nil
}

// UpdateSessionStatus transitions a session and records its end time when
// the new status is terminal.
func (h *SessionsDBHandler) UpdateSessionStatus(id uuid.UUID, status model.SessionStatus, lastError string) error {
	var errText *string
	if lastError != "" {
		errText = &lastError
	}

	var updated int
	err := h.db.Instance.QueryRow(
		`SELECT update_session_status($1, $2, $3)`,
		id,
		status,
		errText,
	).Scan(&updated)
	if err != nil {
		return helper.NewError("exec", mapWriteError(err))
	}
	if updated == 0 {
		return helper.NewError("update session status", fmt.Errorf("session %s not found", id))
	}
	return nil
}

// SelectSession retrieves a session by ID
func (h *SessionsDBHandler) SelectSession(id uuid.UUID) (*model.DiscoverySession, error) {
	session := &model.DiscoverySession{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_session($1)`,
		id,
	)

	err := scanSession(row, session)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return session, nil
}

// SelectActiveSession retrieves the running or paused session, or nil when
// no session is active.
func (h *SessionsDBHandler) SelectActiveSession() (*model.DiscoverySession, error) {
	session := &model.DiscoverySession{}
	row := h.db.Instance.QueryRow(`SELECT * FROM select_active_session()`)

	err := scanSession(row, session)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return session, nil
}

// SelectRecentSessions retrieves sessions ordered by start time, newest first
func (h *SessionsDBHandler) SelectRecentSessions(limit int) ([]*model.DiscoverySession, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_recent_sessions($1)`,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var sessions []*model.DiscoverySession
	for rows.Next() {
		session := &model.DiscoverySession{}
		err := scanSession(rows, session)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		sessions = append(sessions, session)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return sessions, nil
}

func scanSession(row scanRow, session *model.DiscoverySession) error {
	var settings []byte
	err := row.Scan(
		&session.ID,
		&session.Status,
		&settings,
		&session.TotalUnits,
		&session.ProcessedUnits,
		&session.SkippedUnits,
		&session.EntitiesFound,
		&session.LastUnitID,
		&session.LastError,
		&session.StartTime,
		&session.EndTime,
		&session.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if len(settings) > 0 {
		err = json.Unmarshal(settings, &session.Settings)
		if err != nil {
			return fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	return nil
}
