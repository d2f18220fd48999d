package model

// ExpandConfig represents configuration for a graph-expansion query
type ExpandConfig struct {
	MaxHops    int         `json:"max_hops"`
	MaxNodes   int         `json:"max_nodes"`
	Predicates []Predicate `json:"predicates,omitempty"` // nil follows all predicates
}

// DefaultExpandConfig returns a sensible default configuration
func DefaultExpandConfig() ExpandConfig {
	return ExpandConfig{
		MaxHops:  2,
		MaxNodes: 25,
	}
}

// DetectorConfig represents configuration for conflict detection. The
// similarity threshold and the majority-vote rule are tunable rather than
// hard-coded.
type DetectorConfig struct {
	// DuplicateSimilarity is the minimum label similarity (0-1) for two
	// same-typed entities to be flagged as duplicates
	DuplicateSimilarity float64 `json:"duplicate_similarity"`
	// EmbeddingSimilarity is the minimum cosine similarity between label
	// embeddings to count as a duplicate signal; only consulted when
	// embeddings are present
	EmbeddingSimilarity float64 `json:"embedding_similarity"`
	// MajorityRatio is the fraction of type votes that must disagree with
	// the stored type before a classification conflict is raised
	MajorityRatio float64 `json:"majority_ratio"`
}

// DefaultDetectorConfig returns the thresholds used when detection runs
// without explicit configuration
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		DuplicateSimilarity: 0.8,
		EmbeddingSimilarity: 0.92,
		MajorityRatio:       0.6,
	}
}

// ContextEntity is one entity of an expansion result, annotated with how it
// was reached for explainability
type ContextEntity struct {
	Entity  *Entity     `json:"entity"`
	SeedKey string      `json:"seed_key"`        // the seed this entity was reached from
	Hops    int         `json:"hops"`            // 0 for seeds themselves
	Path    []Predicate `json:"path,omitempty"`  // predicate sequence from the seed
	Score   float64     `json:"score,omitempty"` // ranking score at admission time
}

// ContextSet is the result of a graph expansion: the visited entities plus
// the relationships used to reach them
type ContextSet struct {
	Entities []*ContextEntity `json:"entities"`
	Edges    []*Relationship  `json:"edges"`
}

// Statistics aggregates knowledge-graph counts for status endpoints
type Statistics struct {
	EntityCounts        map[EntityType]int       `json:"entity_counts"`
	TotalEntities       int                      `json:"total_entities"`
	TotalRelationships  int                      `json:"total_relationships"`
	TotalMentions       int                      `json:"total_mentions"`
	ValidationCounts    map[ValidationStatus]int `json:"validation_counts"`
	ConfidenceHistogram []int                    `json:"confidence_histogram"` // ten 0.1-wide buckets
	TopEntities         []*Entity                `json:"top_entities"`         // by mention count
}
