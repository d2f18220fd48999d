package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vyasa-labs/granthika/core/conflict"
	"github.com/vyasa-labs/granthika/core/extract"
	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
)

// SessionStore is the slice of the sessions handler the manager depends on
type SessionStore interface {
	InsertSession(session *model.DiscoverySession) error
	UpdateSessionProgress(id uuid.UUID, processed int, skipped int, entitiesFound int, lastUnitID string) error
	UpdateSessionStatus(id uuid.UUID, status model.SessionStatus, lastError string) error
	SelectSession(id uuid.UUID) (*model.DiscoverySession, error)
	SelectActiveSession() (*model.DiscoverySession, error)
	SelectRecentSessions(limit int) ([]*model.DiscoverySession, error)
}

// EntityStore is the slice of the entities handler the manager depends on
type EntityStore interface {
	UpsertEntity(entity *model.Entity) (bool, error)
	SelectEntity(key string) (*model.Entity, error)
}

// MentionStore records text mentions for extracted entities
type MentionStore interface {
	InsertMention(mention *model.TextMention) error
}

// RelationshipStore records relationships asserted during discovery
type RelationshipStore interface {
	InsertRelationship(relationship *model.Relationship) error
}

// Enqueuer feeds newly discovered entities into the review queue
type Enqueuer interface {
	Enqueue(entityKey string, notes string) (*model.QueueEntry, error)
}

// Manager runs discovery sessions over the corpus. At most one session is
// active at a time; the single-flight rule is enforced by the session store,
// so it holds across processes, not just within this one. Processing runs
// in a background goroutine and persists progress after every unit, which
// is what makes a session resumable after pause or crash.
type Manager struct {
	sessions      SessionStore
	entities      EntityStore
	mentions      MentionStore
	relationships RelationshipStore
	reviews       Enqueuer
	extract       extract.ExtractFunc
	logger        *slog.Logger

	mu        sync.Mutex
	current   *worker
	lastVotes conflict.TypeVotes
}

// NewManager creates a session manager over the given stores
func NewManager(
	sessions SessionStore,
	entities EntityStore,
	mentions MentionStore,
	relationships RelationshipStore,
	reviews Enqueuer,
	extractFunc extract.ExtractFunc,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		sessions:      sessions,
		entities:      entities,
		mentions:      mentions,
		relationships: relationships,
		reviews:       reviews,
		extract:       extractFunc,
		logger:        logger,
	}
}

// worker is the in-process state of one running session.
type worker struct {
	session *model.DiscoverySession
	cancel  context.CancelFunc
	gate    *gate
	done    chan struct{}

	mu            sync.Mutex
	votes         conflict.TypeVotes
	assertedSeeds map[string]bool
	stopping      bool
}

// Start begins a new discovery session over the given units. The session
// store rejects a second insert while one is running or paused, returning
// ErrSessionAlreadyActive. Processing continues in the background; Progress
// reports advancement.
func (m *Manager) Start(units []*model.TextUnit, settings model.SessionSettings) (*model.DiscoverySession, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("no text units to process")
	}
	if settings.ConfidenceThreshold <= 0 {
		settings = model.DefaultSessionSettings()
	}

	session := &model.DiscoverySession{
		ID:         uuid.New(),
		Settings:   settings,
		TotalUnits: len(units),
	}
	err := m.sessions.InsertSession(session)
	if err != nil {
		return nil, err
	}

	m.spawn(session, units)
	m.logger.Info("Started discovery session", "session", session.ID, "units", len(units))
	return session, nil
}

// Resume continues the active paused session. When the session was paused
// in this process the background worker picks up where it stood; after a
// restart the session is reloaded and processing restarts after the last
// persisted unit.
func (m *Manager) Resume(units []*model.TextUnit) (*model.DiscoverySession, error) {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()

	if current != nil {
		err := m.sessions.UpdateSessionStatus(current.session.ID, model.SessionRunning, "")
		if err != nil {
			return nil, err
		}
		current.gate.resume()
		m.logger.Info("Resumed discovery session", "session", current.session.ID)
		return m.sessions.SelectSession(current.session.ID)
	}

	session, err := m.sessions.SelectActiveSession()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("no active session to resume")
	}
	if session.Status != model.SessionPaused {
		return nil, fmt.Errorf("session %s is %s, not paused", session.ID, session.Status)
	}

	err = m.sessions.UpdateSessionStatus(session.ID, model.SessionRunning, "")
	if err != nil {
		return nil, err
	}

	remaining := unitsAfter(units, session.LastUnitID)
	m.spawn(session, remaining)
	m.logger.Info("Resumed discovery session after restart",
		"session", session.ID, "last_unit", session.LastUnitID, "remaining", len(remaining))
	return session, nil
}

// Pause suspends the active session between units. Already begun unit work
// finishes first; the session keeps its active slot.
func (m *Manager) Pause() error {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()
	if current == nil {
		return fmt.Errorf("no running session")
	}

	err := m.sessions.UpdateSessionStatus(current.session.ID, model.SessionPaused, "")
	if err != nil {
		return err
	}
	current.gate.pause()

	m.logger.Info("Paused discovery session", "session", current.session.ID)
	return nil
}

// Stop terminates the active session. Progress stays persisted; the active
// slot is freed for a new session.
func (m *Manager) Stop() error {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()
	if current == nil {
		return fmt.Errorf("no running session")
	}

	current.mu.Lock()
	current.stopping = true
	current.mu.Unlock()
	current.cancel()
	current.gate.resume()
	<-current.done

	m.logger.Info("Stopped discovery session", "session", current.session.ID)
	return nil
}

// Progress reports the active or most recent session's advancement
func (m *Manager) Progress() (*model.Progress, error) {
	session, err := m.sessions.SelectActiveSession()
	if err != nil {
		return nil, err
	}
	if session == nil {
		recent, err := m.sessions.SelectRecentSessions(1)
		if err != nil {
			return nil, err
		}
		if len(recent) == 0 {
			return nil, fmt.Errorf("no discovery session")
		}
		session = recent[0]
	}

	progress := session.ComputeProgress(time.Now())
	return &progress, nil
}

// TypeVotes returns the extraction type votes accumulated by the current
// in-process session, or by the last finished one, for conflict detection.
func (m *Manager) TypeVotes() conflict.TypeVotes {
	m.mu.Lock()
	current := m.current
	last := m.lastVotes
	m.mu.Unlock()

	source := last
	if current != nil {
		current.mu.Lock()
		defer current.mu.Unlock()
		source = current.votes
	}
	if source == nil {
		return nil
	}

	votes := conflict.TypeVotes{}
	for key, counts := range source {
		votes[key] = map[model.EntityType]int{}
		for entityType, count := range counts {
			votes[key][entityType] = count
		}
	}
	return votes
}

// Wait blocks until the current session's background worker exits. Used by
// callers that want synchronous completion.
func (m *Manager) Wait() {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()
	if current != nil {
		<-current.done
	}
}

func (m *Manager) spawn(session *model.DiscoverySession, units []*model.TextUnit) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{
		session:       session,
		cancel:        cancel,
		gate:          newGate(),
		done:          make(chan struct{}),
		votes:         conflict.TypeVotes{},
		assertedSeeds: map[string]bool{},
	}

	m.mu.Lock()
	m.current = w
	m.mu.Unlock()

	go m.run(ctx, w, units)
}

// run is the background processing loop. Every unit is processed under the
// per-unit timeout; a timed-out or failed unit is counted as skipped and
// the loop moves on. A storage failure ends the session with SessionError;
// its counters stay persisted so it can be restarted from LastUnitID.
func (m *Manager) run(ctx context.Context, w *worker, units []*model.TextUnit) {
	defer close(w.done)
	defer func() {
		m.mu.Lock()
		if m.current == w {
			m.current = nil
		}
		w.mu.Lock()
		m.lastVotes = w.votes
		w.mu.Unlock()
		m.mu.Unlock()
	}()

	session := w.session
	processed := session.ProcessedUnits
	skipped := session.SkippedUnits
	entitiesFound := session.EntitiesFound

	for _, unit := range units {
		err := w.gate.wait(ctx)
		if err != nil {
			m.finish(w, model.SessionStopped, "")
			return
		}

		newEntities, unitErr := m.processUnitWithTimeout(ctx, w, unit)
		switch {
		case unitErr == nil:
			processed++
			entitiesFound += newEntities
		case errors.Is(unitErr, model.ErrExtractionTimeout):
			processed++
			skipped++
			m.logger.Warn("Skipped text unit", "session", session.ID, "unit", unit.ID, "error", unitErr)
		case errors.Is(unitErr, model.ErrStorageUnavailable):
			m.logger.Error("Storage failure during discovery", "session", session.ID, "unit", unit.ID, "error", unitErr)
			m.finish(w, model.SessionError, unitErr.Error())
			return
		case errors.Is(unitErr, context.Canceled):
			m.finish(w, model.SessionStopped, "")
			return
		default:
			processed++
			skipped++
			m.logger.Warn("Skipped text unit", "session", session.ID, "unit", unit.ID, "error", unitErr)
		}

		err = m.sessions.UpdateSessionProgress(session.ID, processed, skipped, entitiesFound, unit.ID)
		if err != nil {
			m.logger.Error("Failed to persist progress", "session", session.ID, "error", err)
			m.finish(w, model.SessionError, err.Error())
			return
		}
	}

	m.finish(w, model.SessionCompleted, "")
	m.logger.Info("Completed discovery session",
		"session", session.ID, "processed", processed, "skipped", skipped, "entities", entitiesFound)
}

func (m *Manager) finish(w *worker, status model.SessionStatus, lastError string) {
	w.mu.Lock()
	stopping := w.stopping
	w.mu.Unlock()
	if stopping {
		status = model.SessionStopped
	}

	err := m.sessions.UpdateSessionStatus(w.session.ID, status, lastError)
	if err != nil {
		m.logger.Error("Failed to finalize session", "session", w.session.ID, "status", status, "error", err)
	}
}

// processUnitWithTimeout bounds one unit by the session's unit timeout.
// A hung extractor leaves its goroutine behind, but the expired context
// stops it from writing anything once the unit is recorded as skipped.
func (m *Manager) processUnitWithTimeout(ctx context.Context, w *worker, unit *model.TextUnit) (int, error) {
	timeout := w.session.Settings.UnitTimeout
	if timeout <= 0 {
		timeout = model.DefaultSessionSettings().UnitTimeout
	}
	unitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type unitResult struct {
		newEntities int
		err         error
	}
	result := make(chan unitResult, 1)
	go func() {
		newEntities, err := m.processUnit(unitCtx, w, unit)
		result <- unitResult{newEntities, err}
	}()

	select {
	case r := <-result:
		return r.newEntities, r.err
	case <-unitCtx.Done():
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, helper.NewError(fmt.Sprintf("unit %s", unit.ID), model.ErrExtractionTimeout)
	}
}

// processUnit extracts candidates from one unit and persists what clears
// the session's confidence threshold: the entity upsert, its text mention,
// a type vote, and a validation-queue entry for anything new. It returns
// how many entities were seen for the first time. The context is checked
// between candidates, so a unit whose deadline passed mid-extraction
// persists nothing after the session has moved on.
func (m *Manager) processUnit(ctx context.Context, w *worker, unit *model.TextUnit) (int, error) {
	candidates, err := m.extract(unit)
	if err != nil {
		return 0, helper.NewError("extract", err)
	}

	candidates = extract.ApplyConfig(candidates, extract.Config{
		ConfidenceThreshold:  w.session.Settings.ConfidenceThreshold,
		MaxCandidatesPerUnit: w.session.Settings.MaxEntitiesPerUnit,
	})

	newEntities := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return newEntities, err
		}

		isNew, err := m.persistCandidate(unit, candidate)
		if err != nil {
			return newEntities, err
		}

		w.mu.Lock()
		if w.votes[candidate.Key()] == nil {
			w.votes[candidate.Key()] = map[model.EntityType]int{}
		}
		w.votes[candidate.Key()][candidate.Type]++
		w.mu.Unlock()

		if isNew {
			newEntities++
			_, err = m.reviews.Enqueue(candidate.Key(), fmt.Sprintf("discovered in %s", unit.ID))
			if err != nil {
				m.logger.Warn("Failed to enqueue entity for review", "key", candidate.Key(), "error", err)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return newEntities, err
	}
	return newEntities, m.assertSeedRelationships(w, unit, candidates)
}

func (m *Manager) persistCandidate(unit *model.TextUnit, candidate *extract.Candidate) (bool, error) {
	labels := model.Labels{}
	if candidate.Layer == extract.LayerSanskrit {
		labels["sa"] = candidate.Surface
	} else {
		labels["en"] = candidate.Surface
	}

	isNew, err := m.entities.UpsertEntity(&model.Entity{
		Key:                  candidate.Key(),
		Type:                 candidate.Type,
		Labels:               labels,
		ValidationStatus:     model.ValidationPending,
		ExtractionMethod:     model.ExtractionAutomated,
		ExtractionConfidence: candidate.Confidence,
	})
	if err != nil {
		return false, helper.NewError("upsert entity", err)
	}

	err = m.mentions.InsertMention(&model.TextMention{
		TextUnitID:       unit.ID,
		EntityKey:        candidate.Key(),
		SpanStart:        candidate.SpanStart,
		SpanEnd:          candidate.SpanEnd,
		Confidence:       candidate.Confidence,
		SourceType:       model.MentionSourceAutomated,
		ValidationStatus: model.ValidationPending,
	})
	if err != nil {
		return false, helper.NewError("insert mention", err)
	}

	return isNew, nil
}

// assertSeedRelationships inserts the curated relationships whose endpoints
// both exist after this unit's entities were persisted. Each triple is
// asserted at most once per session; the storage layer keeps re-asserts
// idempotent across sessions.
func (m *Manager) assertSeedRelationships(w *worker, unit *model.TextUnit, candidates []*extract.Candidate) error {
	inUnit := map[string]bool{}
	for _, candidate := range candidates {
		inUnit[candidate.Normalized] = true
	}

	for _, seed := range extract.SeedRelationships {
		if !inUnit[seed.Subject] && !inUnit[seed.Object] {
			continue
		}

		tripleKey := seed.Subject + "|" + string(seed.Predicate) + "|" + seed.Object
		w.mu.Lock()
		asserted := w.assertedSeeds[tripleKey]
		w.mu.Unlock()
		if asserted {
			continue
		}

		subjectKey := model.EntityKey(seed.Subject)
		objectKey := model.EntityKey(seed.Object)
		if !m.entityExists(subjectKey) || !m.entityExists(objectKey) {
			continue
		}

		err := m.relationships.InsertRelationship(&model.Relationship{
			ID:         uuid.New(),
			SubjectKey: subjectKey,
			Predicate:  seed.Predicate,
			ObjectKey:  objectKey,
			Confidence: seed.Confidence,
			TextUnitID: unit.ID,
		})
		if errors.Is(err, model.ErrUnknownEntity) {
			continue
		}
		if err != nil {
			return helper.NewError("assert relationship", err)
		}

		w.mu.Lock()
		w.assertedSeeds[tripleKey] = true
		w.mu.Unlock()
	}

	return nil
}

func (m *Manager) entityExists(key string) bool {
	_, err := m.entities.SelectEntity(key)
	return err == nil
}

// unitsAfter returns the units following lastUnitID in corpus order. When
// the marker is absent the full slice is returned.
func unitsAfter(units []*model.TextUnit, lastUnitID string) []*model.TextUnit {
	if lastUnitID == "" {
		return units
	}
	for i, unit := range units {
		if unit.ID == lastUnitID {
			return units[i+1:]
		}
	}
	return units
}

// gate implements cooperative pause between units.
type gate struct {
	mu       sync.Mutex
	paused   bool
	resumeCh chan struct{}
}

func newGate() *gate {
	return &gate{}
}

func (g *gate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.paused = true
		g.resumeCh = make(chan struct{})
	}
}

func (g *gate) resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		close(g.resumeCh)
	}
}

// wait blocks while the gate is paused, returning early when the context
// is cancelled.
func (g *gate) wait(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		g.mu.Lock()
		if !g.paused {
			g.mu.Unlock()
			return nil
		}
		resumeCh := g.resumeCh
		g.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-resumeCh:
		}
	}
}
