package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
	granthikasql "github.com/vyasa-labs/granthika/sql"
)

// RelationshipsDBHandlerFunctions defines the interface for relationship
// database operations.
type RelationshipsDBHandlerFunctions interface {
	InsertRelationship(relationship *model.Relationship) error
	SelectRelationship(id string) (*model.Relationship, error)
	SelectRelationshipsForEntity(key string, predicates []model.Predicate) ([]*model.Relationship, error)
	SelectValidatedRelationships(keys []string, predicates []model.Predicate) ([]*model.Relationship, error)
	CountRelationships() (int, error)
}

// RelationshipsDBHandler handles relationship-related database operations
type RelationshipsDBHandler struct {
	db *helper.Database
}

// NewRelationshipsDBHandler creates a new relationships database handler.
// It initializes the database connection and loads relationship-related SQL
// functions. If force is true, it will reload the SQL functions even if
// they already exist.
func NewRelationshipsDBHandler(db *helper.Database, force bool) (*RelationshipsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	relationshipsDbHandler := &RelationshipsDBHandler{
		db: db,
	}

	err := granthikasql.LoadRelationshipsSql(relationshipsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relationships sql", err)
	}

	err = relationshipsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationshipsDBHandler")

	return relationshipsDbHandler, nil
}

// CreateTable creates the 'relationships' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *RelationshipsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relationships();`)
	if err != nil {
		log.Panicf("error initializing relationships table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table relationships")

	return nil
}

// InsertRelationship inserts a directed edge between two existing entities.
// Both endpoints must exist; a write referencing an unknown key returns
// ErrUnknownEntity. Re-inserting an existing triple keeps the higher
// confidence instead of creating a second row.
func (h *RelationshipsDBHandler) InsertRelationship(relationship *model.Relationship) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_relationship($1, $2, $3, $4, $5, $6)`,
		relationship.SubjectKey,
		relationship.Predicate,
		relationship.ObjectKey,
		relationship.Confidence,
		relationship.TextUnitID,
		relationship.Metadata,
	)

	err := scanRelationship(row, relationship)
	if err != nil {
		return helper.NewError("scan", mapWriteError(err))
	}

	return nil
}

// SelectRelationship retrieves a relationship by ID
func (h *RelationshipsDBHandler) SelectRelationship(id string) (*model.Relationship, error) {
	relationship := &model.Relationship{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_relationship($1)`,
		id,
	)

	err := scanRelationship(row, relationship)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helper.NewError("select relationship", err)
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return relationship, nil
}

// SelectRelationshipsForEntity retrieves all relationships touching an
// entity in either direction, optionally filtered by predicate.
func (h *RelationshipsDBHandler) SelectRelationshipsForEntity(key string, predicates []model.Predicate) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relationships_for_entity($1, $2)`,
		key,
		predicateArray(predicates),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanRelationships(rows)
}

// SelectValidatedRelationships retrieves relationships touching any of the
// given keys where both endpoints are validated. This is the frontier query
// for graph expansion.
func (h *RelationshipsDBHandler) SelectValidatedRelationships(keys []string, predicates []model.Predicate) ([]*model.Relationship, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_validated_relationships($1, $2)`,
		pq.Array(keys),
		predicateArray(predicates),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanRelationships(rows)
}

// CountRelationships returns the total number of relationships
func (h *RelationshipsDBHandler) CountRelationships() (int, error) {
	var count int
	err := h.db.Instance.QueryRow(`SELECT count_relationships()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// predicateArray converts a predicate filter to a driver array, keeping
// nil (follow all predicates) as SQL NULL.
func predicateArray(predicates []model.Predicate) interface{} {
	if predicates == nil {
		return nil
	}
	values := make([]string, len(predicates))
	for i, p := range predicates {
		values[i] = string(p)
	}
	return pq.Array(values)
}

func scanRelationship(row scanRow, relationship *model.Relationship) error {
	return row.Scan(
		&relationship.ID,
		&relationship.SubjectKey,
		&relationship.Predicate,
		&relationship.ObjectKey,
		&relationship.Confidence,
		&relationship.TextUnitID,
		&relationship.Metadata,
		&relationship.CreatedAt,
	)
}

func scanRelationships(rows *sql.Rows) ([]*model.Relationship, error) {
	var relationships []*model.Relationship
	for rows.Next() {
		relationship := &model.Relationship{}
		err := scanRelationship(rows, relationship)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		relationships = append(relationships, relationship)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relationships, nil
}
