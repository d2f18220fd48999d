package model

import (
	"time"

	"github.com/google/uuid"
)

// Predicate is a relationship type from the closed corpus vocabulary
type Predicate string

const (
	PredicateHasSpouse   Predicate = "has-spouse"
	PredicateHasParent   Predicate = "has-parent"
	PredicateHasChild    Predicate = "has-child"
	PredicateHasSibling  Predicate = "has-sibling"
	PredicateDevoteeOf   Predicate = "devotee-of"
	PredicateRules       Predicate = "rules"
	PredicateLivesIn     Predicate = "lives-in"
	PredicateBornIn      Predicate = "born-in"
	PredicateTravelsTo   Predicate = "travels-to"
	PredicateEnemyOf     Predicate = "enemy-of"
	PredicateEmbodies    Predicate = "embodies"
	PredicateExemplifies Predicate = "exemplifies"
)

// predicateInverses declares the formal inverse of each predicate where one
// exists. Storing P(a,b) makes the inverse queryable without materializing
// a second row.
var predicateInverses = map[Predicate]Predicate{
	PredicateHasSpouse:  PredicateHasSpouse,
	PredicateHasParent:  PredicateHasChild,
	PredicateHasChild:   PredicateHasParent,
	PredicateHasSibling: PredicateHasSibling,
	PredicateEnemyOf:    PredicateEnemyOf,
}

// Inverse returns the formal inverse predicate and whether one is declared
func (p Predicate) Inverse() (Predicate, bool) {
	inv, ok := predicateInverses[p]
	return inv, ok
}

// Valid reports whether the predicate belongs to the vocabulary
func (p Predicate) Valid() bool {
	switch p {
	case PredicateHasSpouse, PredicateHasParent, PredicateHasChild,
		PredicateHasSibling, PredicateDevoteeOf, PredicateRules,
		PredicateLivesIn, PredicateBornIn, PredicateTravelsTo,
		PredicateEnemyOf, PredicateEmbodies, PredicateExemplifies:
		return true
	}
	return false
}

// Relationship represents a directed edge between two entities
type Relationship struct {
	ID         uuid.UUID `json:"id"`
	SubjectKey string    `json:"subject_key"`
	Predicate  Predicate `json:"predicate"`
	ObjectKey  string    `json:"object_key"`
	Confidence float64   `json:"confidence"`
	TextUnitID string    `json:"text_unit_id,omitempty"` // source sloka the relationship was asserted from
	Metadata   Metadata  `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Other returns the key on the far side of the relationship from the given
// entity, and whether the edge touches it at all
func (r *Relationship) Other(key string) (string, bool) {
	switch key {
	case r.SubjectKey:
		return r.ObjectKey, true
	case r.ObjectKey:
		return r.SubjectKey, true
	}
	return "", false
}
