package model

import (
	"time"

	"github.com/google/uuid"
)

// MentionSource records how a text mention was produced
type MentionSource string

const (
	MentionSourceAutomated MentionSource = "automated"
	MentionSourceManual    MentionSource = "manual"
	MentionSourceVerified  MentionSource = "verified"
)

// TextMention links a text unit (sloka) to an entity via a character span.
// Invariant: SpanStart < SpanEnd.
type TextMention struct {
	ID               uuid.UUID        `json:"id"`
	TextUnitID       string           `json:"text_unit_id"` // sloka id in kanda.sarga.sloka form
	EntityKey        string           `json:"entity_key"`
	SpanStart        int              `json:"span_start"`
	SpanEnd          int              `json:"span_end"`
	Confidence       float64          `json:"confidence"`
	SourceType       MentionSource    `json:"source_type"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	CreatedAt        time.Time        `json:"created_at"`
}

// SpanValid reports whether the mention span is well formed
func (m *TextMention) SpanValid() bool {
	return m.SpanStart >= 0 && m.SpanStart < m.SpanEnd
}

// TextUnit is one sloka of the corpus with its parallel texts
type TextUnit struct {
	ID          string `json:"id"` // kanda.sarga.sloka
	Sanskrit    string `json:"sanskrit"`
	Translation string `json:"translation,omitempty"`
	Meaning     string `json:"meaning,omitempty"`
}
