package extract

import "github.com/vyasa-labs/granthika/model"

// NewHybridExtractor combines extractors. Candidates that resolve to the
// same entity on the same layer span are merged, keeping the highest
// confidence. Earlier extractors win ties, so the pattern table's curated
// types take precedence over model guesses.
func NewHybridExtractor(extractors ...ExtractFunc) ExtractFunc {
	return func(unit *model.TextUnit) ([]*Candidate, error) {
		type spanKey struct {
			normalized string
			layer      SourceLayer
			start      int
		}

		seen := map[spanKey]*Candidate{}
		var merged []*Candidate

		for _, extractor := range extractors {
			candidates, err := extractor(unit)
			if err != nil {
				return nil, err
			}

			for _, candidate := range candidates {
				key := spanKey{candidate.Normalized, candidate.Layer, candidate.SpanStart}
				existing, ok := seen[key]
				if !ok {
					seen[key] = candidate
					merged = append(merged, candidate)
					continue
				}
				if candidate.Confidence > existing.Confidence {
					existing.Confidence = candidate.Confidence
				}
			}
		}

		return merged, nil
	}
}
