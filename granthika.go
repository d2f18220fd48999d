package granthika

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/vyasa-labs/granthika/core/conflict"
	"github.com/vyasa-labs/granthika/core/discovery"
	"github.com/vyasa-labs/granthika/core/expansion"
	"github.com/vyasa-labs/granthika/core/extract"
	"github.com/vyasa-labs/granthika/core/validation"
	"github.com/vyasa-labs/granthika/corpus"
	"github.com/vyasa-labs/granthika/database"
	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
	loadSql "github.com/vyasa-labs/granthika/sql"
)

// Granthika provides a unified interface to the knowledge graph: entity
// discovery over the corpus, conflict detection, the human validation
// workflow and graph-expansion retrieval.
type Granthika struct {
	DB            *helper.Database
	Entities      *database.EntitiesDBHandler
	Relationships *database.RelationshipsDBHandler
	Mentions      *database.MentionsDBHandler
	Sessions      *database.SessionsDBHandler
	Conflicts     *database.ConflictsDBHandler
	Queue         *database.QueueDBHandler
	Discovery     *discovery.Manager
	Validation    *validation.Service
	Retriever     *expansion.Retriever
	Detector      *conflict.Detector
	Embedder      extract.EmbedFunc // optional, enables the embedding duplicate signal
	// Logging
	log *slog.Logger
}

// NewGranthika creates a new Granthika instance with all handlers
// initialized. Discovery sessions run the pattern extractor by default;
// use UseModelExtractor to add model-based extraction on top.
func NewGranthika(config *helper.DatabaseConfiguration) (*Granthika, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("granthika", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in dependency order (entities first, everything
	// else references them). force=false to not reload existing functions.
	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	relationships, err := database.NewRelationshipsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create relationships handler", err)
	}

	mentions, err := database.NewMentionsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create mentions handler", err)
	}

	sessions, err := database.NewSessionsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create sessions handler", err)
	}

	conflicts, err := database.NewConflictsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create conflicts handler", err)
	}

	queue, err := database.NewQueueDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create queue handler", err)
	}

	validationService := validation.NewService(queue, entities, logger)
	retriever := expansion.NewRetriever(entities, relationships, logger)
	detector := conflict.NewDetector(model.DefaultDetectorConfig())
	manager := discovery.NewManager(
		sessions,
		entities,
		mentions,
		relationships,
		validationService,
		extract.NewPatternExtractor().ExtractFunc(),
		logger,
	)

	return &Granthika{
		DB:            db,
		Entities:      entities,
		Relationships: relationships,
		Mentions:      mentions,
		Sessions:      sessions,
		Conflicts:     conflicts,
		Queue:         queue,
		Discovery:     manager,
		Validation:    validationService,
		Retriever:     retriever,
		Detector:      detector,
		log:           logger,
	}, nil
}

// Close closes the database connection
func (g *Granthika) Close() error {
	if g.DB != nil {
		return g.DB.Close()
	}
	return nil
}

// UseModelExtractor switches discovery to the hybrid extractor: the curated
// pattern table plus the NER model. The pattern table keeps identity and
// typing authority; the model widens recall on the translation layer.
// Downloads the model on first use.
func (g *Granthika) UseModelExtractor() error {
	modelExtractor, err := extract.NewModelExtractor()
	if err != nil {
		return helper.NewError("create model extractor", err)
	}

	hybrid := extract.NewHybridExtractor(
		extract.NewPatternExtractor().ExtractFunc(),
		modelExtractor,
	)
	g.Discovery = discovery.NewManager(
		g.Sessions,
		g.Entities,
		g.Mentions,
		g.Relationships,
		g.Validation,
		hybrid,
		g.log,
	)
	return nil
}

// UseLabelEmbedder sets up the sentence-transformer label embedder,
// enabling embedding-based duplicate detection. Downloads the model on
// first use.
func (g *Granthika) UseLabelEmbedder() error {
	embedder, err := extract.NewLabelEmbedder()
	if err != nil {
		return helper.NewError("create label embedder", err)
	}
	g.Embedder = embedder
	return nil
}

// DiscoverFromCorpus loads the corpus from disk and starts a discovery
// session over all its text units.
func (g *Granthika) DiscoverFromCorpus(corpusRoot string, settings model.SessionSettings) (*model.DiscoverySession, error) {
	units, err := corpus.NewLoader(corpusRoot).LoadAll()
	if err != nil {
		return nil, helper.NewError("load corpus", err)
	}

	return g.Discovery.Start(units, settings)
}

// ResumeFromCorpus reloads the corpus and resumes the paused session after
// its last processed unit.
func (g *Granthika) ResumeFromCorpus(corpusRoot string) (*model.DiscoverySession, error) {
	units, err := corpus.NewLoader(corpusRoot).LoadAll()
	if err != nil {
		return nil, helper.NewError("load corpus", err)
	}

	return g.Discovery.Resume(units)
}

// Expand performs bounded graph expansion from the seed entities, returning
// a context set of validated entities and the relationships linking them
func (g *Granthika) Expand(seedKeys []string, config model.ExpandConfig) (*model.ContextSet, error) {
	return g.Retriever.Expand(seedKeys, config)
}

// EmbedEntityLabels computes and stores label embeddings for up to limit
// entities, enabling similarity queries. Requires UseLabelEmbedder.
func (g *Granthika) EmbedEntityLabels(status model.ValidationStatus, limit int) (int, error) {
	if g.Embedder == nil {
		return 0, helper.NewError("embed labels", fmt.Errorf("embedder not set, use UseLabelEmbedder() first"))
	}

	entities, err := g.Entities.SelectEntitiesByStatus(status, limit, 0)
	if err != nil {
		return 0, helper.NewError("select entities", err)
	}

	embedded := 0
	for _, entity := range entities {
		embedding, err := g.Embedder(entity.Label("en"))
		if err != nil {
			return embedded, helper.NewError(fmt.Sprintf("embed %s", entity.Key), err)
		}
		err = g.Entities.UpdateEntityEmbedding(entity.Key, embedding)
		if err != nil {
			return embedded, helper.NewError(fmt.Sprintf("store embedding for %s", entity.Key), err)
		}
		embedded++
	}

	g.log.Info("Embedded entity labels", slog.Int("count", embedded))
	return embedded, nil
}

// DetectConflicts runs conflict detection over up to limit entities and
// persists what it finds. Re-detection over an unchanged graph inserts
// nothing new. The session's extraction type votes feed classification
// checks; stored label embeddings feed the duplicate signal when present.
func (g *Granthika) DetectConflicts(limit int) ([]*model.Conflict, error) {
	entities, err := g.collectEntities(limit)
	if err != nil {
		return nil, err
	}

	votes := g.Discovery.TypeVotes()
	embeddings, err := g.collectEmbeddingSimilarities(entities)
	if err != nil {
		return nil, err
	}

	detected := g.Detector.Detect(entities, votes, embeddings)

	var inserted []*model.Conflict
	for _, c := range detected {
		isNew, err := g.Conflicts.InsertConflict(c)
		if err != nil {
			return inserted, helper.NewError("insert conflict", err)
		}
		if isNew {
			inserted = append(inserted, c)
		}
	}

	g.log.Info("Detected conflicts", slog.Int("detected", len(detected)), slog.Int("new", len(inserted)))
	return inserted, nil
}

func (g *Granthika) collectEntities(limit int) ([]*model.Entity, error) {
	var all []*model.Entity
	for _, status := range []model.ValidationStatus{model.ValidationPending, model.ValidationValidated} {
		entities, err := g.Entities.SelectEntitiesByStatus(status, limit, 0)
		if err != nil {
			return nil, helper.NewError("select entities", err)
		}
		all = append(all, entities...)
	}
	return all, nil
}

// collectEmbeddingSimilarities queries the vector index for each entity's
// near neighbors of the same type. Entities without stored embeddings
// simply contribute nothing.
func (g *Granthika) collectEmbeddingSimilarities(entities []*model.Entity) (conflict.EmbeddingSimilarities, error) {
	if g.Embedder == nil {
		return nil, nil
	}

	threshold := model.DefaultDetectorConfig().EmbeddingSimilarity
	similarities := conflict.EmbeddingSimilarities{}
	for _, entity := range entities {
		neighbors, err := g.Entities.SelectSimilarByEmbedding(entity.Key, entity.Type, threshold, 5)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("similar entities for %s", entity.Key), err)
		}
		if len(neighbors) > 0 {
			similarities[entity.Key] = neighbors
		}
	}
	return similarities, nil
}

// ResolveConflict applies a reviewer decision to a pending conflict. Merge
// moves the secondary entities' mentions to the primary and rejects them;
// reclassify retypes the implicated entities; keep-separate records the
// decision without touching the graph. A resolved conflict's signature can
// be detected again if the problem reappears.
func (g *Granthika) ResolveConflict(id uuid.UUID, resolution model.ConflictResolution) error {
	c, err := g.Conflicts.SelectConflict(id)
	if err != nil {
		return helper.NewError("select conflict", err)
	}

	switch resolution.Action {
	case model.ResolutionMerge:
		err = g.mergeEntities(c, resolution.PrimaryKey)
	case model.ResolutionReclassify:
		if !resolution.NewType.Valid() {
			return helper.NewError("resolve conflict", fmt.Errorf("invalid target type %q", resolution.NewType))
		}
		for _, key := range c.EntityKeys {
			err = g.Entities.UpdateEntityCorrection(key, &model.EntityCorrections{Type: resolution.NewType})
			if err != nil {
				break
			}
		}
	case model.ResolutionKeepSeparate:
		// Nothing to change; the resolution record is the outcome.
	default:
		return helper.NewError("resolve conflict", fmt.Errorf("unknown resolution action %q", resolution.Action))
	}
	if err != nil {
		return helper.NewError("apply resolution", err)
	}

	err = g.Conflicts.ResolveConflict(id, model.ConflictResolved, resolution.ResolvedBy)
	if err != nil {
		return helper.NewError("mark resolved", err)
	}

	g.log.Info("Resolved conflict",
		slog.String("conflict", id.String()),
		slog.String("action", string(resolution.Action)),
		slog.String("by", resolution.ResolvedBy),
	)
	return nil
}

// mergeEntities folds every implicated entity into the primary: labels and
// properties the primary lacks carry over, mentions transfer, and the
// secondaries are rejected but keep their rows for audit.
func (g *Granthika) mergeEntities(c *model.Conflict, primaryKey string) error {
	if primaryKey == "" {
		return fmt.Errorf("merge requires a primary key")
	}
	primary, err := g.Entities.SelectEntity(primaryKey)
	if err != nil {
		return err
	}

	for _, key := range c.EntityKeys {
		if key == primaryKey {
			continue
		}

		secondary, err := g.Entities.SelectEntity(key)
		if err != nil {
			return err
		}

		// The primary keeps its own values; only fill what it lacks.
		labelAdditions := model.Labels{}
		for lang, label := range secondary.Labels {
			if _, ok := primary.Labels[lang]; !ok {
				labelAdditions[lang] = label
			}
		}
		if len(labelAdditions) > 0 {
			err = g.Entities.UpdateEntityCorrection(primaryKey, &model.EntityCorrections{Labels: labelAdditions})
			if err != nil {
				return err
			}
		}

		propertyAdditions := model.Metadata{}
		for name, value := range secondary.Properties {
			if _, ok := primary.Properties[name]; !ok {
				propertyAdditions[name] = value
			}
		}
		if len(propertyAdditions) > 0 {
			err = g.Entities.UpdateEntityProperties(primaryKey, propertyAdditions)
			if err != nil {
				return err
			}
		}

		moved, err := g.Mentions.TransferMentions(key, primaryKey)
		if err != nil {
			return err
		}
		err = g.Entities.UpdateEntityValidation(key, model.ValidationRejected)
		if err != nil {
			return err
		}

		g.log.Info("Merged entity",
			slog.String("from", key),
			slog.String("into", primaryKey),
			slog.Int("mentions_moved", moved),
		)
	}
	return nil
}

// OrphanEntities lists entities without any text mention; these usually
// indicate a bad merge or an over-eager extraction pass
func (g *Granthika) OrphanEntities(limit int) ([]*model.Entity, error) {
	return g.Entities.SelectOrphanEntities(limit)
}

// PendingConflicts lists unresolved conflicts
func (g *Granthika) PendingConflicts(limit int) ([]*model.Conflict, error) {
	status := model.ConflictPending
	return g.Conflicts.SelectConflicts(&status, nil, limit)
}

// Statistics aggregates graph counts for status reporting
func (g *Granthika) Statistics() (*model.Statistics, error) {
	typeCounts, err := g.Entities.CountEntitiesByType()
	if err != nil {
		return nil, helper.NewError("count entities by type", err)
	}

	statusCounts, err := g.Entities.CountEntitiesByStatus()
	if err != nil {
		return nil, helper.NewError("count entities by status", err)
	}

	totalRelationships, err := g.Relationships.CountRelationships()
	if err != nil {
		return nil, helper.NewError("count relationships", err)
	}

	totalMentions, err := g.Mentions.CountMentions()
	if err != nil {
		return nil, helper.NewError("count mentions", err)
	}

	histogram, err := g.Entities.SelectConfidenceHistogram()
	if err != nil {
		return nil, helper.NewError("confidence histogram", err)
	}

	top, err := g.Entities.SelectTopEntities(10)
	if err != nil {
		return nil, helper.NewError("top entities", err)
	}

	total := 0
	for _, count := range typeCounts {
		total += count
	}

	return &model.Statistics{
		EntityCounts:        typeCounts,
		TotalEntities:       total,
		TotalRelationships:  totalRelationships,
		TotalMentions:       totalMentions,
		ValidationCounts:    statusCounts,
		ConfidenceHistogram: histogram,
		TopEntities:         top,
	}, nil
}

// DiscoveryProgress reports the active or most recent session's progress
func (g *Granthika) DiscoveryProgress() (*model.Progress, error) {
	return g.Discovery.Progress()
}

// WaitForDiscovery blocks until the running discovery session finishes.
// Intended for batch use; interactive callers poll DiscoveryProgress.
func (g *Granthika) WaitForDiscovery() {
	g.Discovery.Wait()
}

// RecentSessions lists past discovery sessions, newest first
func (g *Granthika) RecentSessions(limit int) ([]*model.DiscoverySession, error) {
	return g.Sessions.SelectRecentSessions(limit)
}

// ClaimReview assigns the highest-priority pending queue entry to a reviewer
func (g *Granthika) ClaimReview(assignee string) (*model.QueueEntry, error) {
	return g.Validation.Claim(assignee)
}

// ResolveReview applies a reviewer decision to a claimed queue entry
func (g *Granthika) ResolveReview(entryID uuid.UUID, decision model.ValidationDecision) error {
	return g.Validation.Resolve(entryID, decision)
}

// PendingReviews lists pending queue entries, highest priority first
func (g *Granthika) PendingReviews(limit int) ([]*model.QueueEntry, error) {
	return g.Validation.Pending(limit)
}

// WaitUntilIdle polls until no discovery session is active or the timeout
// elapses. Useful in scripts that chain discovery with detection.
func (g *Granthika) WaitUntilIdle(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		session, err := g.Sessions.SelectActiveSession()
		if err != nil {
			return err
		}
		if session == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("discovery still active after %s", timeout)
}
