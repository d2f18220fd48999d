package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/vyasa-labs/granthika/model"
)

// PatternExtractor finds entities by matching the curated pattern table
// against all three text layers of a unit. It needs no model downloads and
// is the extractor discovery sessions run by default.
type PatternExtractor struct {
	patterns []*compiledPattern
}

type compiledPattern struct {
	spec     EntityPattern
	sanskrit []string         // sorted longest first so the fullest form claims the span
	english  []*regexp.Regexp // case-insensitive, word-bounded
	epithets []*regexp.Regexp
	context  []string // lowercased context words
}

// NewPatternExtractor compiles the built-in pattern table
func NewPatternExtractor() *PatternExtractor {
	return NewPatternExtractorWith(EntityPatterns)
}

// NewPatternExtractorWith compiles a custom pattern table
func NewPatternExtractorWith(patterns []EntityPattern) *PatternExtractor {
	extractor := &PatternExtractor{}
	for _, spec := range patterns {
		compiled := &compiledPattern{spec: spec}

		compiled.sanskrit = append(compiled.sanskrit, spec.Sanskrit...)
		sort.Slice(compiled.sanskrit, func(i, j int) bool {
			return len(compiled.sanskrit[i]) > len(compiled.sanskrit[j])
		})

		for _, form := range spec.English {
			compiled.english = append(compiled.english, wordPattern(form))
		}
		for _, epithet := range spec.Epithets {
			compiled.epithets = append(compiled.epithets, wordPattern(epithet))
		}
		for _, word := range spec.Context {
			compiled.context = append(compiled.context, strings.ToLower(word))
		}

		extractor.patterns = append(extractor.patterns, compiled)
	}
	return extractor
}

// wordPattern builds a case-insensitive, word-bounded matcher for a surface
// form. Forms may contain spaces and apostrophes.
func wordPattern(form string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(form) + `\b`)
}

// ExtractFunc adapts the extractor to the pipeline function type
func (e *PatternExtractor) ExtractFunc() ExtractFunc {
	return e.Extract
}

// Extract proposes candidates for every pattern match in the unit's layers.
// Confidence is the pattern's base scaled by the layer's reliability, with
// boosts for nearby context words and epithet matches, capped at 1.
func (e *PatternExtractor) Extract(unit *model.TextUnit) ([]*Candidate, error) {
	var candidates []*Candidate

	layers := []struct {
		text  string
		layer SourceLayer
	}{
		{unit.Sanskrit, LayerSanskrit},
		{unit.Translation, LayerTranslation},
		{unit.Meaning, LayerMeaning},
	}

	for _, l := range layers {
		if l.text == "" {
			continue
		}
		lower := strings.ToLower(l.text)

		for _, pattern := range e.patterns {
			confidence := pattern.spec.Base * layerMultipliers[l.layer]
			if pattern.hasContext(lower) {
				confidence += contextBoost
			}

			if l.layer == LayerSanskrit {
				candidates = append(candidates, pattern.matchSanskrit(l.text, l.layer, confidence)...)
				continue
			}
			candidates = append(candidates, pattern.matchLatin(l.text, l.layer, confidence)...)
		}
	}

	return candidates, nil
}

func (p *compiledPattern) hasContext(lowerText string) bool {
	for _, word := range p.context {
		if strings.Contains(lowerText, word) {
			return true
		}
	}
	return false
}

// matchSanskrit finds Devanagari surface forms by substring scan. Forms are
// tried longest first so रामः claims its span before राम can.
func (p *compiledPattern) matchSanskrit(text string, layer SourceLayer, confidence float64) []*Candidate {
	var candidates []*Candidate
	var claimed [][2]int

	for _, form := range p.sanskrit {
		offset := 0
		for {
			idx := strings.Index(text[offset:], form)
			if idx < 0 {
				break
			}
			start := offset + idx
			end := start + len(form)
			offset = end

			if overlaps(claimed, start, end) {
				continue
			}
			claimed = append(claimed, [2]int{start, end})

			candidates = append(candidates, &Candidate{
				Surface:    form,
				Normalized: p.spec.Canonical,
				Type:       p.spec.Type,
				Confidence: cap1(confidence),
				SpanStart:  start,
				SpanEnd:    end,
				Layer:      layer,
			})
		}
	}

	return candidates
}

// matchLatin finds English surface forms and epithets by regex. Epithet
// matches carry the epithet boost on top of the layer confidence.
func (p *compiledPattern) matchLatin(text string, layer SourceLayer, confidence float64) []*Candidate {
	var candidates []*Candidate

	for _, re := range p.english {
		for _, span := range re.FindAllStringIndex(text, -1) {
			candidates = append(candidates, &Candidate{
				Surface:    text[span[0]:span[1]],
				Normalized: p.spec.Canonical,
				Type:       p.spec.Type,
				Confidence: cap1(confidence),
				SpanStart:  span[0],
				SpanEnd:    span[1],
				Layer:      layer,
			})
		}
	}

	for _, re := range p.epithets {
		for _, span := range re.FindAllStringIndex(text, -1) {
			candidates = append(candidates, &Candidate{
				Surface:    text[span[0]:span[1]],
				Normalized: p.spec.Canonical,
				Type:       p.spec.Type,
				Confidence: cap1(confidence + epithetBoost),
				SpanStart:  span[0],
				SpanEnd:    span[1],
				Layer:      layer,
			})
		}
	}

	return candidates
}

func overlaps(claimed [][2]int, start, end int) bool {
	for _, span := range claimed {
		if start < span[1] && end > span[0] {
			return true
		}
	}
	return false
}

func cap1(confidence float64) float64 {
	if confidence > maxConfidence {
		return maxConfidence
	}
	return confidence
}

// ApplyConfig filters candidates below the confidence threshold and caps
// the count per unit, keeping the highest-confidence candidates. Ordering
// is deterministic: confidence descending, then layer, then span.
func ApplyConfig(candidates []*Candidate, config Config) []*Candidate {
	var kept []*Candidate
	for _, c := range candidates {
		if c.Confidence >= config.ConfidenceThreshold {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Confidence != kept[j].Confidence {
			return kept[i].Confidence > kept[j].Confidence
		}
		if kept[i].Layer != kept[j].Layer {
			return kept[i].Layer < kept[j].Layer
		}
		return kept[i].SpanStart < kept[j].SpanStart
	})

	if config.MaxCandidatesPerUnit > 0 && len(kept) > config.MaxCandidatesPerUnit {
		kept = kept[:config.MaxCandidatesPerUnit]
	}
	return kept
}
