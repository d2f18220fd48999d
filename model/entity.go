package model

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// EntityType classifies an entity in the fixed corpus ontology
type EntityType string

const (
	EntityTypePerson  EntityType = "Person"
	EntityTypePlace   EntityType = "Place"
	EntityTypeEvent   EntityType = "Event"
	EntityTypeObject  EntityType = "Object"
	EntityTypeConcept EntityType = "Concept"
)

// EntityTypes lists all valid entity types
var EntityTypes = []EntityType{
	EntityTypePerson,
	EntityTypePlace,
	EntityTypeEvent,
	EntityTypeObject,
	EntityTypeConcept,
}

// Valid reports whether the entity type is part of the ontology
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypePerson, EntityTypePlace, EntityTypeEvent, EntityTypeObject, EntityTypeConcept:
		return true
	}
	return false
}

// ValidationStatus represents the review state of an entity
type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending"
	ValidationValidated ValidationStatus = "validated"
	ValidationRejected  ValidationStatus = "rejected"
)

// ExtractionMethod records which kind of strategy produced an entity
type ExtractionMethod string

const (
	ExtractionAutomated ExtractionMethod = "automated"
	ExtractionManual    ExtractionMethod = "manual"
	ExtractionHybrid    ExtractionMethod = "hybrid"
)

// Entity represents a named entity in the knowledge graph.
// Entities are never physically deleted; rejected entities keep their
// rows with ValidationRejected for audit.
type Entity struct {
	Key                  string           `json:"key"` // URI-like identifier, e.g. http://granthika.dev/entity/rama
	Type                 EntityType       `json:"entity_type"`
	Labels               Labels           `json:"labels"` // language code -> display name
	Properties           Metadata         `json:"properties,omitempty"`
	ValidationStatus     ValidationStatus `json:"validation_status"`
	ExtractionMethod     ExtractionMethod `json:"extraction_method"`
	ExtractionConfidence float64          `json:"extraction_confidence"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
	// Filled by queries that join mention counts
	MentionCount int `json:"mention_count,omitempty"`
}

// Label returns the display name for a language, falling back to English
// and then to any label
func (e *Entity) Label(lang string) string {
	if name, ok := e.Labels[lang]; ok {
		return name
	}
	if name, ok := e.Labels["en"]; ok {
		return name
	}
	for _, name := range e.Labels {
		return name
	}
	return e.Key
}

// EntityKeyPrefix is the URI prefix for generated entity keys
const EntityKeyPrefix = "http://granthika.dev/entity/"

// EntityKey builds the canonical URI-like key for a normalized name
func EntityKey(normalized string) string {
	return EntityKeyPrefix + normalized
}

// NormalizeLabel produces the canonical form of a surface string used for
// entity keys and duplicate comparison: lowercased, whitespace collapsed to
// underscores, romanized diacritics folded so that IAST and simplified
// transliterations of one name agree ("Rāma" and "Raama" both normalize
// to "raama").
func NormalizeLabel(surface string) string {
	s := norm.NFC.String(strings.TrimSpace(surface))
	s = foldTransliteration(strings.ToLower(s))
	return strings.Join(strings.Fields(s), "_")
}

// foldTransliteration rewrites Latin letters carrying combining marks into
// plain ASCII: macron vowels double ("ā" -> "aa", the simplified scheme
// for IAST long vowels) and every other mark is dropped ("ṣ" -> "s").
// Marks on non-Latin bases, Devanagari matras included, are kept.
func foldTransliteration(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	var base rune
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) && base > 0 && base < 128 {
			if r == '\u0304' && (base == 'a' || base == 'i' || base == 'u') {
				b.WriteRune(base)
			}
			continue
		}
		b.WriteRune(r)
		base = r
	}
	return norm.NFC.String(b.String())
}
