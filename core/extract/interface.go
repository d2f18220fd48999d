package extract

import "github.com/vyasa-labs/granthika/model"

// SourceLayer names the text layer a candidate was found in. Layers carry
// different reliability: the Sanskrit source text is most trustworthy,
// paraphrased meaning the least.
type SourceLayer string

const (
	LayerSanskrit    SourceLayer = "sanskrit"
	LayerTranslation SourceLayer = "translation"
	LayerMeaning     SourceLayer = "meaning"
)

// layerMultipliers scale a pattern's base confidence by source reliability.
var layerMultipliers = map[SourceLayer]float64{
	LayerSanskrit:    1.0,
	LayerTranslation: 0.9,
	LayerMeaning:     0.8,
}

// Candidate is one entity occurrence proposed by an extractor, before any
// thresholding or persistence.
type Candidate struct {
	Surface    string           // exact matched text
	Normalized string           // canonical normalized form, shared across spellings
	Type       model.EntityType
	Confidence float64
	SpanStart  int // byte offset into the layer text
	SpanEnd    int
	Layer      SourceLayer
}

// Key returns the entity key this candidate resolves to
func (c *Candidate) Key() string {
	return model.EntityKey(c.Normalized)
}

// ExtractFunc proposes entity candidates for one text unit
type ExtractFunc func(unit *model.TextUnit) ([]*Candidate, error)

// Config bounds extractor output per unit
type Config struct {
	// ConfidenceThreshold drops candidates below it before they reach storage
	ConfidenceThreshold float64
	// MaxCandidatesPerUnit caps output per unit, keeping the highest
	// confidence candidates
	MaxCandidatesPerUnit int
}

// DefaultConfig returns the extraction bounds used when a session is
// started without explicit settings
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold:  0.7,
		MaxCandidatesPerUnit: 10,
	}
}
