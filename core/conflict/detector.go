package conflict

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vyasa-labs/granthika/model"
)

// Detector finds duplicate, ambiguous and misclassified entities. Detection
// is a pure function of its inputs: the same graph state always produces
// the same conflicts with the same signatures, which is what makes
// re-detection idempotent at the storage layer.
type Detector struct {
	config model.DetectorConfig
}

// NewDetector creates a detector with the given thresholds
func NewDetector(config model.DetectorConfig) *Detector {
	return &Detector{config: config}
}

// TypeVotes counts, per entity key, how often extraction proposed each
// entity type. The discovery pipeline accumulates these during a session.
type TypeVotes map[string]map[model.EntityType]int

// EmbeddingSimilarities maps an entity key to its embedding-similar
// neighbors (key -> cosine similarity), as returned by the vector index.
type EmbeddingSimilarities map[string]map[string]float64

// Detect examines entities and returns all detected conflicts. votes and
// embeddings are optional signals; passing nil disables them.
func (d *Detector) Detect(entities []*model.Entity, votes TypeVotes, embeddings EmbeddingSimilarities) []*model.Conflict {
	var conflicts []*model.Conflict
	conflicts = append(conflicts, d.detectDuplicates(entities, embeddings)...)
	conflicts = append(conflicts, d.detectAmbiguous(entities)...)
	conflicts = append(conflicts, d.detectMisclassified(entities, votes)...)

	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].Signature < conflicts[j].Signature
	})
	return conflicts
}

// detectDuplicates flags same-typed entity pairs whose canonical names are
// close under bigram similarity, or whose label embeddings are close when
// an embedding signal is available.
func (d *Detector) detectDuplicates(entities []*model.Entity, embeddings EmbeddingSimilarities) []*model.Conflict {
	var conflicts []*model.Conflict

	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			a, b := entities[i], entities[j]
			if a.Type != b.Type || a.Key == b.Key {
				continue
			}

			nameSimilarity := Similarity(canonicalName(a), canonicalName(b))
			embeddingSimilarity := embeddingSimilarityFor(embeddings, a.Key, b.Key)

			if nameSimilarity < d.config.DuplicateSimilarity &&
				embeddingSimilarity < d.config.EmbeddingSimilarity {
				continue
			}

			primary, secondary := a, b
			if mergePriority(b) > mergePriority(a) {
				primary, secondary = b, a
			}

			keys := []string{a.Key, b.Key}
			conflicts = append(conflicts, &model.Conflict{
				Type:       model.ConflictDuplicate,
				Signature:  model.ConflictSignature(model.ConflictDuplicate, keys),
				EntityKeys: keys,
				Description: fmt.Sprintf("%s and %s appear to be the same %s (name similarity %.2f)",
					canonicalName(a), canonicalName(b), strings.ToLower(string(a.Type)), nameSimilarity),
				SuggestedResolution: fmt.Sprintf("merge %s into %s", secondary.Key, primary.Key),
			})
		}
	}

	return conflicts
}

// detectAmbiguous flags groups of entities sharing a label surface while
// carrying different types.
func (d *Detector) detectAmbiguous(entities []*model.Entity) []*model.Conflict {
	bySurface := map[string][]*model.Entity{}
	for _, entity := range entities {
		seen := map[string]bool{}
		for _, label := range entity.Labels {
			normalized := model.NormalizeLabel(label)
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true
			bySurface[normalized] = append(bySurface[normalized], entity)
		}
	}

	surfaces := make([]string, 0, len(bySurface))
	for surface := range bySurface {
		surfaces = append(surfaces, surface)
	}
	sort.Strings(surfaces)

	var conflicts []*model.Conflict
	for _, surface := range surfaces {
		group := bySurface[surface]
		if len(group) < 2 {
			continue
		}

		types := map[model.EntityType]bool{}
		keys := make([]string, 0, len(group))
		for _, entity := range group {
			types[entity.Type] = true
			keys = append(keys, entity.Key)
		}
		if len(types) < 2 {
			continue
		}

		conflicts = append(conflicts, &model.Conflict{
			Type:                model.ConflictAmbiguous,
			Signature:           model.ConflictSignature(model.ConflictAmbiguous, keys),
			EntityKeys:          keys,
			Description:         fmt.Sprintf("surface %q maps to entities of %d different types", surface, len(types)),
			SuggestedResolution: "review which entity each mention refers to",
		})
	}

	return conflicts
}

// detectMisclassified flags entities whose stored type disagrees with the
// majority of extraction type votes.
func (d *Detector) detectMisclassified(entities []*model.Entity, votes TypeVotes) []*model.Conflict {
	if votes == nil {
		return nil
	}

	var conflicts []*model.Conflict
	for _, entity := range entities {
		entityVotes, ok := votes[entity.Key]
		if !ok {
			continue
		}

		total := 0
		disagreeing := 0
		majorityType := entity.Type
		majorityCount := 0
		for voteType, count := range entityVotes {
			total += count
			if voteType != entity.Type {
				disagreeing += count
			}
			if count > majorityCount || (count == majorityCount && voteType < majorityType) {
				majorityType = voteType
				majorityCount = count
			}
		}
		if total == 0 {
			continue
		}

		if float64(disagreeing)/float64(total) < d.config.MajorityRatio || majorityType == entity.Type {
			continue
		}

		keys := []string{entity.Key}
		conflicts = append(conflicts, &model.Conflict{
			Type:       model.ConflictClassification,
			Signature:  model.ConflictSignature(model.ConflictClassification, keys),
			EntityKeys: keys,
			Description: fmt.Sprintf("stored type %s disagrees with %d of %d extraction votes",
				entity.Type, disagreeing, total),
			SuggestedResolution: fmt.Sprintf("reclassify as %s", majorityType),
		})
	}

	return conflicts
}

// canonicalName strips the key prefix and re-normalizes, so keys stored
// before transliteration folding still compare in folded form.
func canonicalName(entity *model.Entity) string {
	return model.NormalizeLabel(strings.TrimPrefix(entity.Key, model.EntityKeyPrefix))
}

// mergePriority ranks merge targets: validated beats pending, then higher
// confidence, then more mentions.
func mergePriority(entity *model.Entity) float64 {
	priority := entity.ExtractionConfidence + float64(entity.MentionCount)
	if entity.ValidationStatus == model.ValidationValidated {
		priority += 1000
	}
	return priority
}

func embeddingSimilarityFor(embeddings EmbeddingSimilarities, a, b string) float64 {
	if embeddings == nil {
		return 0
	}
	if neighbors, ok := embeddings[a]; ok {
		if similarity, ok := neighbors[b]; ok {
			return similarity
		}
	}
	if neighbors, ok := embeddings[b]; ok {
		if similarity, ok := neighbors[a]; ok {
			return similarity
		}
	}
	return 0
}
