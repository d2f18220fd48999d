package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vyasa-labs/granthika/model"
)

func TestInsertConflict(t *testing.T) {
	db := initDB(t)
	defer db.Close()
	handler, err := NewConflictsDBHandler(db, false)
	require.NoError(t, err)

	keys := []string{model.EntityKey("rama"), model.EntityKey("raama")}

	t.Run("Insert new conflict", func(t *testing.T) {
		conflict := &model.Conflict{
			Type:                model.ConflictDuplicate,
			EntityKeys:          keys,
			Description:         "labels rama and raama normalize to similar forms",
			SuggestedResolution: "merge into rama",
		}

		created, err := handler.InsertConflict(conflict)
		assert.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, model.ConflictPending, conflict.Status)
		assert.Equal(t, model.ConflictSignature(model.ConflictDuplicate, keys), conflict.Signature)
	})

	t.Run("Re-detection of the same conflict is idempotent", func(t *testing.T) {
		conflict := &model.Conflict{
			Type:       model.ConflictDuplicate,
			EntityKeys: []string{keys[1], keys[0]}, // key order must not matter
		}

		created, err := handler.InsertConflict(conflict)
		assert.NoError(t, err)
		assert.False(t, created, "an unresolved conflict with the same signature already exists")

		pending := model.ConflictPending
		conflicts, err := handler.SelectConflicts(&pending, nil, 100)
		require.NoError(t, err)

		matches := 0
		for _, c := range conflicts {
			if c.Signature == model.ConflictSignature(model.ConflictDuplicate, keys) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "exactly one pending record per signature")
	})

	t.Run("Resolved conflict allows re-detection", func(t *testing.T) {
		pending := model.ConflictPending
		conflicts, err := handler.SelectConflicts(&pending, nil, 100)
		require.NoError(t, err)
		require.NotEmpty(t, conflicts)

		err = handler.ResolveConflict(conflicts[0].ID, model.ConflictResolved, "reviewer")
		assert.NoError(t, err)

		conflict := &model.Conflict{
			Type:       model.ConflictDuplicate,
			EntityKeys: keys,
		}
		created, err := handler.InsertConflict(conflict)
		assert.NoError(t, err)
		assert.True(t, created, "a resolved signature can conflict again later")
	})
}

func TestSelectConflicts(t *testing.T) {
	db := initDB(t)
	defer db.Close()
	handler, err := NewConflictsDBHandler(db, false)
	require.NoError(t, err)

	ambiguous := &model.Conflict{
		Type:        model.ConflictAmbiguous,
		EntityKeys:  []string{model.EntityKey("bharata_person"), model.EntityKey("bharata_concept")},
		Description: "surface bharata maps to entities of different types",
	}
	_, err = handler.InsertConflict(ambiguous)
	require.NoError(t, err)

	t.Run("Filter by type", func(t *testing.T) {
		conflictType := model.ConflictAmbiguous
		conflicts, err := handler.SelectConflicts(nil, &conflictType, 100)
		assert.NoError(t, err)
		require.NotEmpty(t, conflicts)
		for _, c := range conflicts {
			assert.Equal(t, model.ConflictAmbiguous, c.Type)
		}
	})

	t.Run("Select by ID round-trips entity keys", func(t *testing.T) {
		stored, err := handler.SelectConflict(ambiguous.ID)
		assert.NoError(t, err)
		assert.ElementsMatch(t, ambiguous.EntityKeys, stored.EntityKeys)
	})

	t.Run("Resolving twice fails", func(t *testing.T) {
		err := handler.ResolveConflict(ambiguous.ID, model.ConflictIgnored, "reviewer")
		assert.NoError(t, err)

		err = handler.ResolveConflict(ambiguous.ID, model.ConflictResolved, "reviewer")
		assert.Error(t, err, "only pending conflicts can transition")
	})
}
