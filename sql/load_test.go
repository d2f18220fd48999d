package sql

import (
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	db := initDB(t)

	t.Run("Initialize database extensions", func(t *testing.T) {
		err := Init(db.Instance)
		assert.NoError(t, err)

		// Verify pgvector extension is created
		var exists bool
		err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector');").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "pgvector extension should be created")

		// Verify pgcrypto extension is created
		err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'pgcrypto');").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "pgcrypto extension should be created")
	})

	t.Run("Initialize database extensions is idempotent", func(t *testing.T) {
		// Running Init multiple times should not error
		err := Init(db.Instance)
		assert.NoError(t, err)

		err = Init(db.Instance)
		assert.NoError(t, err)
	})
}

func TestLoadEntitiesSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	// Initialize extensions first
	err := Init(db.Instance)
	require.NoError(t, err)

	t.Run("Load entities SQL functions", func(t *testing.T) {
		err := LoadEntitiesSql(db.Instance, false)
		assert.NoError(t, err)

		// Verify all functions exist
		for _, funcName := range EntitiesFunctions {
			var exists bool
			err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);", funcName).Scan(&exists)
			require.NoError(t, err)
			assert.True(t, exists, "Function %s should exist", funcName)
		}
	})

	t.Run("Load entities SQL is idempotent without force", func(t *testing.T) {
		// Loading again without force should be a no-op
		err := LoadEntitiesSql(db.Instance, false)
		assert.NoError(t, err)
	})

	t.Run("Load entities SQL with force reloads", func(t *testing.T) {
		// Loading with force should reload
		err := LoadEntitiesSql(db.Instance, true)
		assert.NoError(t, err)

		// Verify functions still exist
		for _, funcName := range EntitiesFunctions {
			var exists bool
			err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);", funcName).Scan(&exists)
			require.NoError(t, err)
			assert.True(t, exists, "Function %s should exist after force reload", funcName)
		}
	})
}

func TestLoadRelationshipsSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	// Initialize extensions first
	err := Init(db.Instance)
	require.NoError(t, err)

	t.Run("Load relationships SQL functions", func(t *testing.T) {
		err := LoadRelationshipsSql(db.Instance, false)
		assert.NoError(t, err)

		// Verify all functions exist
		for _, funcName := range RelationshipsFunctions {
			var exists bool
			err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);", funcName).Scan(&exists)
			require.NoError(t, err)
			assert.True(t, exists, "Function %s should exist", funcName)
		}
	})

	t.Run("Load relationships SQL is idempotent without force", func(t *testing.T) {
		err := LoadRelationshipsSql(db.Instance, false)
		assert.NoError(t, err)
	})

	t.Run("Load relationships SQL with force reloads", func(t *testing.T) {
		err := LoadRelationshipsSql(db.Instance, true)
		assert.NoError(t, err)
	})
}

func TestLoadMentionsSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	// Initialize extensions first
	err := Init(db.Instance)
	require.NoError(t, err)

	t.Run("Load mentions SQL functions", func(t *testing.T) {
		err := LoadMentionsSql(db.Instance, false)
		assert.NoError(t, err)

		// Verify all functions exist
		for _, funcName := range MentionsFunctions {
			var exists bool
			err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);", funcName).Scan(&exists)
			require.NoError(t, err)
			assert.True(t, exists, "Function %s should exist", funcName)
		}
	})

	t.Run("Load mentions SQL is idempotent without force", func(t *testing.T) {
		err := LoadMentionsSql(db.Instance, false)
		assert.NoError(t, err)
	})

	t.Run("Load mentions SQL with force reloads", func(t *testing.T) {
		err := LoadMentionsSql(db.Instance, true)
		assert.NoError(t, err)
	})
}

func TestLoadSessionsSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	// Initialize extensions first
	err := Init(db.Instance)
	require.NoError(t, err)

	t.Run("Load sessions SQL functions", func(t *testing.T) {
		err := LoadSessionsSql(db.Instance, false)
		assert.NoError(t, err)

		// Verify all functions exist
		for _, funcName := range SessionsFunctions {
			var exists bool
			err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);", funcName).Scan(&exists)
			require.NoError(t, err)
			assert.True(t, exists, "Function %s should exist", funcName)
		}
	})

	t.Run("Load sessions SQL is idempotent without force", func(t *testing.T) {
		err := LoadSessionsSql(db.Instance, false)
		assert.NoError(t, err)
	})

	t.Run("Load sessions SQL with force reloads", func(t *testing.T) {
		err := LoadSessionsSql(db.Instance, true)
		assert.NoError(t, err)
	})
}

func TestLoadConflictsSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	// Initialize extensions first
	err := Init(db.Instance)
	require.NoError(t, err)

	t.Run("Load conflicts SQL functions", func(t *testing.T) {
		err := LoadConflictsSql(db.Instance, false)
		assert.NoError(t, err)

		// Verify all functions exist
		for _, funcName := range ConflictsFunctions {
			var exists bool
			err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);", funcName).Scan(&exists)
			require.NoError(t, err)
			assert.True(t, exists, "Function %s should exist", funcName)
		}
	})

	t.Run("Load conflicts SQL is idempotent without force", func(t *testing.T) {
		err := LoadConflictsSql(db.Instance, false)
		assert.NoError(t, err)
	})

	t.Run("Load conflicts SQL with force reloads", func(t *testing.T) {
		err := LoadConflictsSql(db.Instance, true)
		assert.NoError(t, err)
	})
}

func TestLoadQueueSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	// Initialize extensions first
	err := Init(db.Instance)
	require.NoError(t, err)

	t.Run("Load queue SQL functions", func(t *testing.T) {
		err := LoadQueueSql(db.Instance, false)
		assert.NoError(t, err)

		// Verify all functions exist
		for _, funcName := range QueueFunctions {
			var exists bool
			err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);", funcName).Scan(&exists)
			require.NoError(t, err)
			assert.True(t, exists, "Function %s should exist", funcName)
		}
	})

	t.Run("Load queue SQL is idempotent without force", func(t *testing.T) {
		err := LoadQueueSql(db.Instance, false)
		assert.NoError(t, err)
	})

	t.Run("Load queue SQL with force reloads", func(t *testing.T) {
		err := LoadQueueSql(db.Instance, true)
		assert.NoError(t, err)
	})
}

func TestLoadAllSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	// Initialize extensions first
	err := Init(db.Instance)
	require.NoError(t, err)

	t.Run("Load all SQL functions", func(t *testing.T) {
		err := LoadAllSql(db.Instance, false)
		assert.NoError(t, err)

		allFunctions := [][]string{
			EntitiesFunctions,
			RelationshipsFunctions,
			MentionsFunctions,
			SessionsFunctions,
			ConflictsFunctions,
			QueueFunctions,
		}
		for _, functions := range allFunctions {
			for _, funcName := range functions {
				var exists bool
				err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);", funcName).Scan(&exists)
				require.NoError(t, err)
				assert.True(t, exists, "Function %s should exist", funcName)
			}
		}
	})

	t.Run("Load all SQL is idempotent without force", func(t *testing.T) {
		err := LoadAllSql(db.Instance, false)
		assert.NoError(t, err)
	})

	t.Run("Load all SQL with force reloads", func(t *testing.T) {
		err := LoadAllSql(db.Instance, true)
		assert.NoError(t, err)
	})
}

func TestCheckFunctions(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	// Initialize extensions first
	err := Init(db.Instance)
	require.NoError(t, err)

	t.Run("Check functions returns false when functions don't exist", func(t *testing.T) {
		exists, err := checkFunctions(db.Instance, []string{"nonexistent_function"})
		assert.NoError(t, err)
		assert.False(t, exists, "Should return false for nonexistent function")
	})

	t.Run("Check functions returns true when all functions exist", func(t *testing.T) {
		// Load entities SQL first
		err := LoadEntitiesSql(db.Instance, false)
		require.NoError(t, err)

		exists, err := checkFunctions(db.Instance, EntitiesFunctions)
		assert.NoError(t, err)
		assert.True(t, exists, "Should return true when all functions exist")
	})

	t.Run("Check functions returns false when some functions don't exist", func(t *testing.T) {
		// Mix of existing and non-existing functions
		mixedFunctions := append([]string{"init_entities"}, "nonexistent_function")
		exists, err := checkFunctions(db.Instance, mixedFunctions)
		assert.NoError(t, err)
		assert.False(t, exists, "Should return false when some functions don't exist")
	})

	t.Run("Check functions with empty list", func(t *testing.T) {
		exists, err := checkFunctions(db.Instance, []string{})
		assert.NoError(t, err)
		// With an empty list, the loop doesn't execute and allExist remains false
		assert.False(t, exists, "Should return false for empty function list")
	})
}

func TestFunctionLists(t *testing.T) {
	t.Run("EntitiesFunctions list is not empty", func(t *testing.T) {
		assert.NotEmpty(t, EntitiesFunctions, "EntitiesFunctions should not be empty")
		assert.Greater(t, len(EntitiesFunctions), 5, "Should have multiple entity functions")
	})

	t.Run("RelationshipsFunctions list is not empty", func(t *testing.T) {
		assert.NotEmpty(t, RelationshipsFunctions, "RelationshipsFunctions should not be empty")
		assert.Greater(t, len(RelationshipsFunctions), 3, "Should have multiple relationship functions")
	})

	t.Run("MentionsFunctions list is not empty", func(t *testing.T) {
		assert.NotEmpty(t, MentionsFunctions, "MentionsFunctions should not be empty")
		assert.Greater(t, len(MentionsFunctions), 3, "Should have multiple mention functions")
	})

	t.Run("SessionsFunctions list is not empty", func(t *testing.T) {
		assert.NotEmpty(t, SessionsFunctions, "SessionsFunctions should not be empty")
		assert.Greater(t, len(SessionsFunctions), 3, "Should have multiple session functions")
	})

	t.Run("ConflictsFunctions list is not empty", func(t *testing.T) {
		assert.NotEmpty(t, ConflictsFunctions, "ConflictsFunctions should not be empty")
		assert.Greater(t, len(ConflictsFunctions), 3, "Should have multiple conflict functions")
	})

	t.Run("QueueFunctions list is not empty", func(t *testing.T) {
		assert.NotEmpty(t, QueueFunctions, "QueueFunctions should not be empty")
		assert.Greater(t, len(QueueFunctions), 3, "Should have multiple queue functions")
	})
}

func TestEmbeddedSQL(t *testing.T) {
	t.Run("Init SQL is embedded", func(t *testing.T) {
		assert.NotEmpty(t, initSQL, "initSQL should be embedded")
		assert.Contains(t, initSQL, "CREATE EXTENSION", "Should contain CREATE EXTENSION")
	})

	t.Run("Entities SQL is embedded", func(t *testing.T) {
		assert.NotEmpty(t, entitiesSQL, "entitiesSQL should be embedded")
		assert.Contains(t, entitiesSQL, "CREATE", "Should contain CREATE statements")
	})

	t.Run("Relationships SQL is embedded", func(t *testing.T) {
		assert.NotEmpty(t, relationshipsSQL, "relationshipsSQL should be embedded")
		assert.Contains(t, relationshipsSQL, "CREATE", "Should contain CREATE statements")
	})

	t.Run("Mentions SQL is embedded", func(t *testing.T) {
		assert.NotEmpty(t, mentionsSQL, "mentionsSQL should be embedded")
		assert.Contains(t, mentionsSQL, "CREATE", "Should contain CREATE statements")
	})

	t.Run("Sessions SQL is embedded", func(t *testing.T) {
		assert.NotEmpty(t, sessionsSQL, "sessionsSQL should be embedded")
		assert.Contains(t, sessionsSQL, "CREATE", "Should contain CREATE statements")
	})

	t.Run("Conflicts SQL is embedded", func(t *testing.T) {
		assert.NotEmpty(t, conflictsSQL, "conflictsSQL should be embedded")
		assert.Contains(t, conflictsSQL, "CREATE", "Should contain CREATE statements")
	})

	t.Run("Queue SQL is embedded", func(t *testing.T) {
		assert.NotEmpty(t, queueSQL, "queueSQL should be embedded")
		assert.Contains(t, queueSQL, "CREATE", "Should contain CREATE statements")
	})
}
