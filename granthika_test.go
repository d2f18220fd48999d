package granthika

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

func initGranthika(t *testing.T) *Granthika {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	g, err := NewGranthika(dbConfig)
	require.NoError(t, err, "failed to create granthika")
	require.NotNil(t, g, "expected granthika to be non-nil")

	t.Cleanup(func() {
		g.Close()
	})

	return g
}

// writeTestCorpus lays out a minimal corpus on disk in the expected
// directory structure: one kanda directory with per-sarga layer files.
func writeTestCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	kandaDir := filepath.Join(root, "balakanda")
	require.NoError(t, os.MkdirAll(kandaDir, 0o755))

	translation := "" +
		"balakanda::1::1::Rama was the eldest son of Dasharatha, the king of Ayodhya.\n" +
		"balakanda::1::2::Rama married Sita, the princess of Mithila.\n" +
		"balakanda::1::3::Hanuman served Rama as his greatest devotee.\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(kandaDir, "Balakanda_sarga_1_translation.txt"),
		[]byte(translation), 0o644))

	sloka := "" +
		"balakanda::1::1::रामः दशरथस्य ज्येष्ठः पुत्रः आसीत्\n" +
		"balakanda::1::2::रामः सीताम् उपयेमे\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(kandaDir, "Balakanda_sarga_1_sloka.txt"),
		[]byte(sloka), 0o644))

	return root
}

func TestNewGranthika(t *testing.T) {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	t.Run("Valid call NewGranthika", func(t *testing.T) {
		g, err := NewGranthika(dbConfig)
		require.NoError(t, err, "Expected NewGranthika to not return an error")
		require.NotNil(t, g, "Expected NewGranthika to return a non-nil instance")
		assert.NotNil(t, g.DB, "Expected granthika to have a database instance")
		assert.NotNil(t, g.Entities, "Expected granthika to have entities handler")
		assert.NotNil(t, g.Relationships, "Expected granthika to have relationships handler")
		assert.NotNil(t, g.Mentions, "Expected granthika to have mentions handler")
		assert.NotNil(t, g.Sessions, "Expected granthika to have sessions handler")
		assert.NotNil(t, g.Conflicts, "Expected granthika to have conflicts handler")
		assert.NotNil(t, g.Queue, "Expected granthika to have queue handler")
		assert.NotNil(t, g.Discovery, "Expected granthika to have discovery manager")
		assert.NotNil(t, g.Validation, "Expected granthika to have validation service")
		assert.NotNil(t, g.Retriever, "Expected granthika to have expansion retriever")
		assert.Nil(t, g.Embedder, "Expected embedder to be nil initially")

		err = g.Close()
		assert.NoError(t, err, "Expected Close to not return an error")
	})

	t.Run("Granthika with nil database handles Close gracefully", func(t *testing.T) {
		g := &Granthika{}

		err := g.Close()
		assert.NoError(t, err, "Expected Close to handle nil DB gracefully")
	})
}

// TestDiscoveryWorkflow walks the full path once: discover entities from a
// corpus on disk, validate them through the review queue, then expand from
// a seed and resolve a detected conflict. The subtests build on each
// other's state in order.
func TestDiscoveryWorkflow(t *testing.T) {
	g := initGranthika(t)
	corpusRoot := writeTestCorpus(t)

	var session *model.DiscoverySession

	t.Run("Discovery finds entities and mentions", func(t *testing.T) {
		var err error
		session, err = g.DiscoverFromCorpus(corpusRoot, model.SessionSettings{
			ConfidenceThreshold: 0.7,
			MaxEntitiesPerUnit:  10,
			UnitTimeout:         10 * time.Second,
		})
		require.NoError(t, err)
		g.WaitForDiscovery()

		final, err := g.Sessions.SelectSession(session.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SessionCompleted, final.Status)
		assert.Equal(t, 3, final.TotalUnits)
		assert.Equal(t, 3, final.ProcessedUnits)
		assert.Equal(t, 0, final.SkippedUnits)

		rama, err := g.Entities.SelectEntity(model.EntityKey("rama"))
		require.NoError(t, err)
		assert.Equal(t, model.EntityTypePerson, rama.Type)
		assert.Equal(t, model.ValidationPending, rama.ValidationStatus)
		assert.Equal(t, "रामः", rama.Labels["sa"], "the Sanskrit layer contributes the Sanskrit label")

		for _, name := range []string{"sita", "dasharatha", "ayodhya", "hanuman", "mithila"} {
			_, err := g.Entities.SelectEntity(model.EntityKey(name))
			assert.NoError(t, err, "expected %s to be discovered", name)
		}

		mentions, err := g.Mentions.SelectMentionsByUnit("balakanda.1.2")
		require.NoError(t, err)
		assert.NotEmpty(t, mentions)
	})

	t.Run("Curated relationships were asserted", func(t *testing.T) {
		edges, err := g.Relationships.SelectRelationshipsForEntity(model.EntityKey("rama"), nil)
		require.NoError(t, err)

		predicates := map[model.Predicate]bool{}
		for _, edge := range edges {
			predicates[edge.Predicate] = true
		}
		assert.True(t, predicates[model.PredicateHasSpouse], "rama and sita were both discovered")
		assert.True(t, predicates[model.PredicateHasParent], "rama and dasharatha were both discovered")
	})

	t.Run("Review queue drains through claim and validate", func(t *testing.T) {
		pending, err := g.PendingReviews(50)
		require.NoError(t, err)
		assert.NotEmpty(t, pending, "discovery enqueued the new entities")

		validated := 0
		for {
			entry, err := g.ClaimReview("reviewer-1")
			if errors.Is(err, model.ErrClaimConflict) {
				break
			}
			require.NoError(t, err)

			err = g.ResolveReview(entry.ID, model.ValidationDecision{
				Action:     model.ActionValidate,
				ReviewedBy: "reviewer-1",
			})
			require.NoError(t, err)
			validated++
		}
		assert.GreaterOrEqual(t, validated, 6)

		rama, err := g.Entities.SelectEntity(model.EntityKey("rama"))
		require.NoError(t, err)
		assert.Equal(t, model.ValidationValidated, rama.ValidationStatus)
	})

	t.Run("Expansion from rama reaches the validated neighborhood", func(t *testing.T) {
		contextSet, err := g.Expand(
			[]string{model.EntityKey("rama")},
			model.ExpandConfig{MaxHops: 2, MaxNodes: 25},
		)
		require.NoError(t, err)

		keys := map[string]int{}
		for _, contextEntity := range contextSet.Entities {
			keys[contextEntity.Entity.Key] = contextEntity.Hops
		}
		assert.Contains(t, keys, model.EntityKey("sita"))
		assert.Contains(t, keys, model.EntityKey("dasharatha"))
		assert.Equal(t, 0, keys[model.EntityKey("rama")])
		assert.NotEmpty(t, contextSet.Edges)
	})

	t.Run("Expansion with no seeds fails", func(t *testing.T) {
		_, err := g.Expand(nil, model.DefaultExpandConfig())
		assert.ErrorIs(t, err, model.ErrEmptySeed)
	})

	t.Run("Statistics reflect the discovered graph", func(t *testing.T) {
		stats, err := g.Statistics()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, stats.TotalEntities, 6)
		assert.Greater(t, stats.TotalRelationships, 0)
		assert.Greater(t, stats.TotalMentions, 0)
		assert.Greater(t, stats.EntityCounts[model.EntityTypePerson], 0)
		assert.Len(t, stats.ConfidenceHistogram, 10)
	})

	t.Run("Detected duplicate resolves by merge", func(t *testing.T) {
		// A near-duplicate spelling of rama, as a second extraction pass
		// might produce it.
		_, err := g.Entities.UpsertEntity(&model.Entity{
			Key:                  model.EntityKey("raama"),
			Type:                 model.EntityTypePerson,
			Labels:               model.Labels{"en": "Raama", "iast": "Rāma"},
			ValidationStatus:     model.ValidationPending,
			ExtractionMethod:     model.ExtractionAutomated,
			ExtractionConfidence: 0.75,
		})
		require.NoError(t, err)

		inserted, err := g.DetectConflicts(100)
		require.NoError(t, err)

		var duplicate *model.Conflict
		for _, c := range inserted {
			if c.Type == model.ConflictDuplicate {
				duplicate = c
			}
		}
		require.NotNil(t, duplicate, "expected rama/raama to be flagged")

		// Re-detection over the unchanged graph inserts nothing new.
		again, err := g.DetectConflicts(100)
		require.NoError(t, err)
		for _, c := range again {
			assert.NotEqual(t, duplicate.Signature, c.Signature)
		}

		stored, err := g.Conflicts.SelectConflict(duplicate.ID)
		require.NoError(t, err)
		err = g.ResolveConflict(stored.ID, model.ConflictResolution{
			Action:     model.ResolutionMerge,
			PrimaryKey: model.EntityKey("rama"),
			ResolvedBy: "reviewer-1",
		})
		require.NoError(t, err)

		merged, err := g.Entities.SelectEntity(model.EntityKey("raama"))
		require.NoError(t, err)
		assert.Equal(t, model.ValidationRejected, merged.ValidationStatus,
			"the merged-away entity keeps its row, rejected")

		primary, err := g.Entities.SelectEntity(model.EntityKey("rama"))
		require.NoError(t, err)
		assert.Equal(t, "Rama", primary.Labels["en"], "the primary keeps its own label")
		assert.Equal(t, "Rāma", primary.Labels["iast"], "labels the primary lacked carry over")

		orphans, err := g.OrphanEntities(100)
		require.NoError(t, err)
		orphanKeys := map[string]bool{}
		for _, orphan := range orphans {
			orphanKeys[orphan.Key] = true
		}
		assert.True(t, orphanKeys[model.EntityKey("raama")],
			"raama never had mentions of its own")
		assert.False(t, orphanKeys[model.EntityKey("rama")])

		pending, err := g.PendingConflicts(100)
		require.NoError(t, err)
		for _, c := range pending {
			assert.NotEqual(t, duplicate.Signature, c.Signature)
		}
	})

	t.Run("Second discovery session starts after the first completed", func(t *testing.T) {
		next, err := g.DiscoverFromCorpus(corpusRoot, model.SessionSettings{
			ConfidenceThreshold: 0.7,
			MaxEntitiesPerUnit:  10,
			UnitTimeout:         10 * time.Second,
		})
		require.NoError(t, err)
		assert.NotEqual(t, session.ID, next.ID)
		g.WaitForDiscovery()

		require.NoError(t, g.WaitUntilIdle(5*time.Second))

		sessions, err := g.RecentSessions(10)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(sessions), 2)
		assert.Equal(t, next.ID, sessions[0].ID, "newest first")
	})
}

func TestEmbeddingRequiresSetup(t *testing.T) {
	g := initGranthika(t)

	_, err := g.EmbedEntityLabels(model.ValidationPending, 10)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "embedder not set")
}
