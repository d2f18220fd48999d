package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
	granthikasql "github.com/vyasa-labs/granthika/sql"
)

// MentionsDBHandlerFunctions defines the interface for mention database
// operations.
type MentionsDBHandlerFunctions interface {
	InsertMention(mention *model.TextMention) error
	SelectMentionsByEntity(key string, limit int) ([]*model.TextMention, error)
	SelectMentionsByUnit(textUnitID string) ([]*model.TextMention, error)
	CountMentionsForEntities(keys []string) (map[string]int, error)
	CountMentions() (int, error)
	TransferMentions(fromKey string, toKey string) (int, error)
}

// MentionsDBHandler handles text-mention database operations
type MentionsDBHandler struct {
	db *helper.Database
}

// NewMentionsDBHandler creates a new mentions database handler.
// It initializes the database connection and loads mention-related SQL
// functions. If force is true, it will reload the SQL functions even if
// they already exist.
func NewMentionsDBHandler(db *helper.Database, force bool) (*MentionsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	mentionsDbHandler := &MentionsDBHandler{
		db: db,
	}

	err := granthikasql.LoadMentionsSql(mentionsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load mentions sql", err)
	}

	err = mentionsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized MentionsDBHandler")

	return mentionsDbHandler, nil
}

// CreateTable creates the 'text_mentions' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *MentionsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_mentions();`)
	if err != nil {
		log.Panicf("error initializing text_mentions table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table text_mentions")

	return nil
}

// InsertMention records that an entity appears in a text unit at a span.
// The referenced entity must exist (ErrUnknownEntity otherwise) and the
// span must satisfy 0 <= start < end (ErrInvalidSpan otherwise).
func (h *MentionsDBHandler) InsertMention(mention *model.TextMention) error {
	if !mention.SpanValid() {
		return model.ErrInvalidSpan
	}
	if mention.ValidationStatus == "" {
		mention.ValidationStatus = model.ValidationPending
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_mention($1, $2, $3, $4, $5, $6, $7)`,
		mention.TextUnitID,
		mention.EntityKey,
		mention.SpanStart,
		mention.SpanEnd,
		mention.Confidence,
		mention.SourceType,
		mention.ValidationStatus,
	)

	err := row.Scan(
		&mention.ID,
		&mention.TextUnitID,
		&mention.EntityKey,
		&mention.SpanStart,
		&mention.SpanEnd,
		&mention.Confidence,
		&mention.SourceType,
		&mention.ValidationStatus,
		&mention.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", mapWriteError(err))
	}

	return nil
}

// SelectMentionsByEntity retrieves mentions of an entity
func (h *MentionsDBHandler) SelectMentionsByEntity(key string, limit int) ([]*model.TextMention, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_mentions_by_entity($1, $2)`,
		key,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var mentions []*model.TextMention
	for rows.Next() {
		mention := &model.TextMention{}
		err := rows.Scan(
			&mention.ID,
			&mention.TextUnitID,
			&mention.EntityKey,
			&mention.SpanStart,
			&mention.SpanEnd,
			&mention.Confidence,
			&mention.SourceType,
			&mention.ValidationStatus,
			&mention.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		mentions = append(mentions, mention)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return mentions, nil
}

// SelectMentionsByUnit retrieves all mentions inside one text unit
func (h *MentionsDBHandler) SelectMentionsByUnit(textUnitID string) ([]*model.TextMention, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_mentions_by_unit($1)`,
		textUnitID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var mentions []*model.TextMention
	for rows.Next() {
		mention := &model.TextMention{}
		err := rows.Scan(
			&mention.ID,
			&mention.TextUnitID,
			&mention.EntityKey,
			&mention.SpanStart,
			&mention.SpanEnd,
			&mention.Confidence,
			&mention.SourceType,
			&mention.ValidationStatus,
			&mention.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		mentions = append(mentions, mention)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return mentions, nil
}

// CountMentionsForEntities returns per-entity mention counts for a set of
// keys. Keys without mentions are absent from the result.
func (h *MentionsDBHandler) CountMentionsForEntities(keys []string) (map[string]int, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM count_mentions_for_entities($1)`,
		pq.Array(keys),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var key string
		var count int
		err := rows.Scan(&key, &count)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		counts[key] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return counts, nil
}

// CountMentions returns the total number of mentions
func (h *MentionsDBHandler) CountMentions() (int, error) {
	var count int
	err := h.db.Instance.QueryRow(`SELECT count_mentions()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// TransferMentions moves all mentions of one entity to another as part of
// a duplicate merge. Returns the number of mentions moved.
func (h *MentionsDBHandler) TransferMentions(fromKey string, toKey string) (int, error) {
	var moved int
	err := h.db.Instance.QueryRow(
		`SELECT transfer_mentions($1, $2)`,
		fromKey,
		toKey,
	).Scan(&moved)
	if err != nil {
		return 0, helper.NewError("scan", mapWriteError(err))
	}
	return moved, nil
}
