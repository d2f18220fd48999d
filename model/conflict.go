package model

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConflictType classifies a detected problem among entities
type ConflictType string

const (
	ConflictDuplicate      ConflictType = "duplicate"
	ConflictAmbiguous      ConflictType = "ambiguous"
	ConflictClassification ConflictType = "classification"
)

// ConflictStatus represents the resolution state of a conflict
type ConflictStatus string

const (
	ConflictPending  ConflictStatus = "pending"
	ConflictResolved ConflictStatus = "resolved"
	ConflictIgnored  ConflictStatus = "ignored"
)

// ResolutionAction is the reviewer decision applied to a conflict
type ResolutionAction string

const (
	ResolutionMerge        ResolutionAction = "merge"
	ResolutionKeepSeparate ResolutionAction = "keep-separate"
	ResolutionReclassify   ResolutionAction = "reclassify"
)

// Conflict is a detected problem among a set of entities. Conflicts are
// keyed by the canonical signature of (type, implicated entity keys), so
// re-running detection over an unchanged graph never inserts a second
// record for the same unresolved issue.
type Conflict struct {
	ID                  uuid.UUID      `json:"id"`
	Type                ConflictType   `json:"conflict_type"`
	Signature           string         `json:"signature"`
	EntityKeys          []string       `json:"entity_keys"`
	Description         string         `json:"description"`
	SuggestedResolution string         `json:"suggested_resolution"`
	Status              ConflictStatus `json:"status"`
	ResolvedBy          string         `json:"resolved_by,omitempty"`
	ResolvedAt          *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
}

// ConflictSignature builds the canonical signature for a conflict type and
// its implicated entity keys. Key order does not matter.
func ConflictSignature(conflictType ConflictType, entityKeys []string) string {
	keys := make([]string, len(entityKeys))
	copy(keys, entityKeys)
	sort.Strings(keys)
	return string(conflictType) + ":" + strings.Join(keys, "|")
}

// ConflictResolution is a reviewer decision on a conflict
type ConflictResolution struct {
	Action     ResolutionAction `json:"action"`
	PrimaryKey string           `json:"primary_key,omitempty"` // merge target
	NewType    EntityType       `json:"new_type,omitempty"`    // reclassify target type
	ResolvedBy string           `json:"resolved_by"`
	Notes      string           `json:"notes,omitempty"`
}
