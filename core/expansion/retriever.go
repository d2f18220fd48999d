package expansion

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
)

// EntityStore is the slice of the entities handler the retriever depends on
type EntityStore interface {
	SelectEntity(key string) (*model.Entity, error)
}

// RelationshipStore provides the validated-only frontier query
type RelationshipStore interface {
	SelectValidatedRelationships(keys []string, predicates []model.Predicate) ([]*model.Relationship, error)
}

// Retriever assembles bounded context sets by breadth-first expansion from
// seed entities. Only edges between validated entities are followed, so
// pending and rejected entities never leak into generated context. The
// result is deterministic for a fixed graph state.
type Retriever struct {
	entities      EntityStore
	relationships RelationshipStore
	logger        *slog.Logger
}

// NewRetriever creates a retriever over the given stores
func NewRetriever(entities EntityStore, relationships RelationshipStore, logger *slog.Logger) *Retriever {
	return &Retriever{
		entities:      entities,
		relationships: relationships,
		logger:        logger,
	}
}

// visitRecord tracks how an admitted entity was reached.
type visitRecord struct {
	seedKey string
	hops    int
	path    []model.Predicate
	score   float64
}

// Expand walks the validated graph outward from the seeds, up to
// config.MaxHops hops and config.MaxNodes entities in total (seeds
// included). When a hop's frontier would exceed the remaining budget,
// candidates are ranked by mention count times mean edge confidence and
// ties break on the entity key. Unknown and non-validated seed keys are
// skipped; an empty seed list is an error.
func (r *Retriever) Expand(seedKeys []string, config model.ExpandConfig) (*model.ContextSet, error) {
	if len(seedKeys) == 0 {
		return nil, model.ErrEmptySeed
	}
	if config.MaxHops < 0 || config.MaxNodes <= 0 {
		config = model.DefaultExpandConfig()
	}

	visited := map[string]*visitRecord{}
	var frontier []string

	for _, key := range uniqueSorted(seedKeys) {
		if _, ok := visited[key]; ok {
			continue
		}
		if len(visited) >= config.MaxNodes {
			break
		}

		entity, err := r.entities.SelectEntity(key)
		if errors.Is(err, model.ErrUnknownEntity) {
			r.logger.Debug("Skipping unknown seed", "key", key)
			continue
		}
		if err != nil {
			return nil, helper.NewError("resolve seed", err)
		}
		if entity.ValidationStatus != model.ValidationValidated {
			r.logger.Debug("Skipping non-validated seed", "key", key, "status", entity.ValidationStatus)
			continue
		}

		visited[key] = &visitRecord{seedKey: key, hops: 0}
		frontier = append(frontier, key)
	}

	edgesByID := map[string]*model.Relationship{}

	for hop := 1; hop <= config.MaxHops && len(frontier) > 0 && len(visited) < config.MaxNodes; hop++ {
		edges, err := r.relationships.SelectValidatedRelationships(frontier, config.Predicates)
		if err != nil {
			return nil, helper.NewError("expand frontier", err)
		}
		sortEdges(edges)

		candidates := map[string]*candidate{}
		for _, edge := range edges {
			edgesByID[edge.ID.String()] = edge

			for _, parentKey := range frontier {
				neighborKey, ok := edge.Other(parentKey)
				if !ok {
					continue
				}
				if _, seen := visited[neighborKey]; seen {
					continue
				}

				c, ok := candidates[neighborKey]
				if !ok {
					parent := visited[parentKey]
					path := make([]model.Predicate, len(parent.path), len(parent.path)+1)
					copy(path, parent.path)
					c = &candidate{
						key:     neighborKey,
						seedKey: parent.seedKey,
						path:    append(path, edge.Predicate),
					}
					candidates[neighborKey] = c
				}
				c.confidenceSum += edge.Confidence
				c.edgeCount++
			}
		}
		if len(candidates) == 0 {
			break
		}

		admitted, err := r.admit(candidates, config.MaxNodes-len(visited))
		if err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, c := range admitted {
			visited[c.key] = &visitRecord{
				seedKey: c.seedKey,
				hops:    hop,
				path:    c.path,
				score:   c.score,
			}
			frontier = append(frontier, c.key)
		}
	}

	return r.buildContextSet(visited, edgesByID)
}

type candidate struct {
	key           string
	seedKey       string
	path          []model.Predicate
	confidenceSum float64
	edgeCount     int
	entity        *model.Entity
	score         float64
}

// admit ranks a hop's candidates and keeps at most budget of them. The
// score is mention count times mean confidence of the edges that reached
// the candidate; higher scores win, equal scores order by key.
func (r *Retriever) admit(candidates map[string]*candidate, budget int) ([]*candidate, error) {
	ranked := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		entity, err := r.entities.SelectEntity(c.key)
		if errors.Is(err, model.ErrUnknownEntity) {
			continue
		}
		if err != nil {
			return nil, helper.NewError("resolve candidate", err)
		}
		c.entity = entity
		meanConfidence := c.confidenceSum / float64(c.edgeCount)
		c.score = float64(entity.MentionCount) * meanConfidence
		ranked = append(ranked, c)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].key < ranked[j].key
	})

	if len(ranked) > budget {
		ranked = ranked[:budget]
	}
	return ranked, nil
}

// buildContextSet materializes the visited set, ordered by hop count and
// then key, plus every followed edge whose endpoints were both admitted.
func (r *Retriever) buildContextSet(visited map[string]*visitRecord, edgesByID map[string]*model.Relationship) (*model.ContextSet, error) {
	keys := make([]string, 0, len(visited))
	for key := range visited {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := visited[keys[i]], visited[keys[j]]
		if a.hops != b.hops {
			return a.hops < b.hops
		}
		return keys[i] < keys[j]
	})

	contextSet := &model.ContextSet{}
	for _, key := range keys {
		record := visited[key]
		entity, err := r.entities.SelectEntity(key)
		if err != nil {
			return nil, helper.NewError("load context entity", err)
		}
		contextSet.Entities = append(contextSet.Entities, &model.ContextEntity{
			Entity:  entity,
			SeedKey: record.seedKey,
			Hops:    record.hops,
			Path:    record.path,
			Score:   record.score,
		})
	}

	edgeIDs := make([]string, 0, len(edgesByID))
	for id := range edgesByID {
		edgeIDs = append(edgeIDs, id)
	}
	sort.Strings(edgeIDs)
	for _, id := range edgeIDs {
		edge := edgesByID[id]
		_, subjectIn := visited[edge.SubjectKey]
		_, objectIn := visited[edge.ObjectKey]
		if subjectIn && objectIn {
			contextSet.Edges = append(contextSet.Edges, edge)
		}
	}

	return contextSet, nil
}

func uniqueSorted(keys []string) []string {
	unique := make([]string, 0, len(keys))
	seen := map[string]bool{}
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			unique = append(unique, key)
		}
	}
	sort.Strings(unique)
	return unique
}

func sortEdges(edges []*model.Relationship) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SubjectKey != edges[j].SubjectKey {
			return edges[i].SubjectKey < edges[j].SubjectKey
		}
		if edges[i].Predicate != edges[j].Predicate {
			return edges[i].Predicate < edges[j].Predicate
		}
		return edges[i].ObjectKey < edges[j].ObjectKey
	})
}
