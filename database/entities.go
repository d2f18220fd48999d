package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
	granthikasql "github.com/vyasa-labs/granthika/sql"
)

// EntitiesDBHandlerFunctions defines the interface for entity database operations.
type EntitiesDBHandlerFunctions interface {
	UpsertEntity(entity *model.Entity) (bool, error)
	SelectEntity(key string) (*model.Entity, error)
	SelectEntitiesByStatus(status model.ValidationStatus, limit int, offset int) ([]*model.Entity, error)
	SelectEntitiesByType(entityType model.EntityType, limit int) ([]*model.Entity, error)
	SearchEntities(query string, entityType *model.EntityType, limit int) ([]*model.Entity, error)
	UpdateEntityValidation(key string, status model.ValidationStatus) error
	UpdateEntityCorrection(key string, corrections *model.EntityCorrections) error
	UpdateEntityProperties(key string, properties model.Metadata) error
	UpdateEntityEmbedding(key string, embedding []float32) error
	SelectSimilarByEmbedding(key string, entityType model.EntityType, threshold float64, limit int) (map[string]float64, error)
	SelectOrphanEntities(limit int) ([]*model.Entity, error)
	CountEntitiesByType() (map[model.EntityType]int, error)
	CountEntitiesByStatus() (map[model.ValidationStatus]int, error)
	SelectConfidenceHistogram() ([]int, error)
	SelectTopEntities(limit int) ([]*model.Entity, error)
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := granthikasql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// UpsertEntity inserts an entity or merges it into the existing row with
// the same key. Labels merge, properties are last-writer-wins, confidence
// keeps the maximum. Returns whether a new row was created.
func (h *EntitiesDBHandler) UpsertEntity(entity *model.Entity) (bool, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_entity($1, $2, $3, $4, $5, $6)`,
		entity.Key,
		entity.Type,
		entity.Labels,
		entity.Properties,
		entity.ExtractionMethod,
		entity.ExtractionConfidence,
	)

	var isNew bool
	err := row.Scan(
		&entity.Key,
		&entity.Type,
		&entity.Labels,
		&entity.Properties,
		&entity.ValidationStatus,
		&entity.ExtractionMethod,
		&entity.ExtractionConfidence,
		&entity.CreatedAt,
		&entity.UpdatedAt,
		&isNew,
	)
	if err != nil {
		return false, helper.NewError("scan", mapWriteError(err))
	}

	return isNew, nil
}

// SelectEntity retrieves an entity by key. Returns ErrUnknownEntity when no
// entity with that key exists.
func (h *EntitiesDBHandler) SelectEntity(key string) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity($1)`,
		key,
	)

	err := scanEntity(row, entity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUnknownEntity
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntitiesByStatus retrieves entities in a validation state, paged by
// limit and offset.
func (h *EntitiesDBHandler) SelectEntitiesByStatus(status model.ValidationStatus, limit int, offset int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_status($1, $2, $3)`,
		status,
		limit,
		offset,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// SelectEntitiesByType retrieves entities by type
func (h *EntitiesDBHandler) SelectEntitiesByType(entityType model.EntityType, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_type($1, $2)`,
		entityType,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// SearchEntities searches entities by label or key substring
func (h *EntitiesDBHandler) SearchEntities(query string, entityType *model.EntityType, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_entities($1, $2, $3)`,
		query,
		entityType,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	return scanEntities(rows)
}

// UpdateEntityValidation sets the validation status of an entity
func (h *EntitiesDBHandler) UpdateEntityValidation(key string, status model.ValidationStatus) error {
	var updated int
	err := h.db.Instance.QueryRow(
		`SELECT update_entity_validation($1, $2)`,
		key,
		status,
	).Scan(&updated)
	if err != nil {
		return helper.NewError("exec", mapWriteError(err))
	}
	if updated == 0 {
		return model.ErrUnknownEntity
	}
	return nil
}

// UpdateEntityCorrection applies reviewer corrections to an entity and
// marks its extraction method as hybrid.
func (h *EntitiesDBHandler) UpdateEntityCorrection(key string, corrections *model.EntityCorrections) error {
	var entityType *model.EntityType
	if corrections.Type != "" {
		entityType = &corrections.Type
	}
	var labels model.Labels
	if len(corrections.Labels) > 0 {
		labels = corrections.Labels
	}

	var updated int
	err := h.db.Instance.QueryRow(
		`SELECT update_entity_correction($1, $2, $3)`,
		key,
		entityType,
		labels,
	).Scan(&updated)
	if err != nil {
		return helper.NewError("exec", mapWriteError(err))
	}
	if updated == 0 {
		return model.ErrUnknownEntity
	}
	return nil
}

// UpdateEntityProperties merges properties into an entity
func (h *EntitiesDBHandler) UpdateEntityProperties(key string, properties model.Metadata) error {
	var updated int
	err := h.db.Instance.QueryRow(
		`SELECT update_entity_properties($1, $2)`,
		key,
		properties,
	).Scan(&updated)
	if err != nil {
		return helper.NewError("exec", mapWriteError(err))
	}
	if updated == 0 {
		return model.ErrUnknownEntity
	}
	return nil
}

// UpdateEntityEmbedding stores the label embedding for an entity
func (h *EntitiesDBHandler) UpdateEntityEmbedding(key string, embedding []float32) error {
	var updated int
	err := h.db.Instance.QueryRow(
		`SELECT update_entity_embedding($1, $2)`,
		key,
		pgvector.NewVector(embedding),
	).Scan(&updated)
	if err != nil {
		return helper.NewError("exec", mapWriteError(err))
	}
	if updated == 0 {
		return model.ErrUnknownEntity
	}
	return nil
}

// SelectSimilarByEmbedding returns keys of same-typed entities whose label
// embeddings have cosine similarity of at least threshold to the given
// entity's embedding, mapped to their similarity.
func (h *EntitiesDBHandler) SelectSimilarByEmbedding(key string, entityType model.EntityType, threshold float64, limit int) (map[string]float64, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_embedding($1, $2, $3, $4)`,
		key,
		entityType,
		threshold,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	similar := map[string]float64{}
	for rows.Next() {
		var otherKey string
		var similarity float64
		err := rows.Scan(&otherKey, &similarity)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		similar[otherKey] = similarity
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return similar, nil
}

// SelectOrphanEntities returns entities that have no text mentions
func (h *EntitiesDBHandler) SelectOrphanEntities(limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_orphan_entities($1)`,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.Key,
			&entity.Type,
			&entity.Labels,
			&entity.ValidationStatus,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// CountEntitiesByType returns entity counts grouped by type
func (h *EntitiesDBHandler) CountEntitiesByType() (map[model.EntityType]int, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM count_entities_by_type()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	counts := map[model.EntityType]int{}
	for rows.Next() {
		var entityType model.EntityType
		var count int
		err := rows.Scan(&entityType, &count)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		counts[entityType] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return counts, nil
}

// CountEntitiesByStatus returns entity counts grouped by validation status
func (h *EntitiesDBHandler) CountEntitiesByStatus() (map[model.ValidationStatus]int, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM count_entities_by_status()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	counts := map[model.ValidationStatus]int{}
	for rows.Next() {
		var status model.ValidationStatus
		var count int
		err := rows.Scan(&status, &count)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		counts[status] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return counts, nil
}

// SelectConfidenceHistogram returns ten 0.1-wide confidence buckets
func (h *EntitiesDBHandler) SelectConfidenceHistogram() ([]int, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_confidence_histogram()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	histogram := make([]int, 10)
	for rows.Next() {
		var bucket, count int
		err := rows.Scan(&bucket, &count)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		if bucket >= 0 && bucket < len(histogram) {
			histogram[bucket] = count
		}
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return histogram, nil
}

// SelectTopEntities returns entities ordered by mention count
func (h *EntitiesDBHandler) SelectTopEntities(limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_top_entities($1)`,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.Key,
			&entity.Type,
			&entity.Labels,
			&entity.ValidationStatus,
			&entity.MentionCount,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// scanRow abstracts over sql.Row and sql.Rows for shared entity scanning.
type scanRow interface {
	Scan(dest ...any) error
}

func scanEntity(row scanRow, entity *model.Entity) error {
	return row.Scan(
		&entity.Key,
		&entity.Type,
		&entity.Labels,
		&entity.Properties,
		&entity.ValidationStatus,
		&entity.ExtractionMethod,
		&entity.ExtractionConfidence,
		&entity.CreatedAt,
		&entity.UpdatedAt,
		&entity.MentionCount,
	)
}

func scanEntities(rows *sql.Rows) ([]*model.Entity, error) {
	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := scanEntity(rows, entity)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err := rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}
