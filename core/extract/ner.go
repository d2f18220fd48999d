package extract

import (
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
)

// NewModelExtractor creates an extractor backed by a NER model. It runs on
// the English translation layer and complements the pattern table with
// entities the table does not know.
// Uses distilbert-NER; detects PER, ORG, LOC and MISC spans.
func NewModelExtractor() (ExtractFunc, error) {
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(unit *model.TextUnit) ([]*Candidate, error) {
		if unit.Translation == "" {
			return nil, nil
		}

		result, err := nerPipeline.RunPipeline([]string{unit.Translation})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}
		if len(result.Entities) == 0 {
			return nil, nil
		}

		var candidates []*Candidate
		for _, entity := range result.Entities[0] {
			entityType, ok := mapNERLabel(entity.Entity)
			if !ok {
				continue
			}

			surface := strings.TrimSpace(entity.Word)
			if surface == "" {
				continue
			}

			candidates = append(candidates, &Candidate{
				Surface:    surface,
				Normalized: model.NormalizeLabel(surface),
				Type:       entityType,
				Confidence: float64(entity.Score) * layerMultipliers[LayerTranslation],
				SpanStart:  int(entity.Start),
				SpanEnd:    int(entity.End),
				Layer:      LayerTranslation,
			})
		}

		return candidates, nil
	}, nil
}

// mapNERLabel maps a BIO-tagged NER label onto the corpus ontology. ORG
// has no counterpart in the epic and is dropped.
func mapNERLabel(label string) (model.EntityType, bool) {
	label = strings.TrimPrefix(strings.TrimPrefix(label, "B-"), "I-")
	switch label {
	case "PER":
		return model.EntityTypePerson, true
	case "LOC":
		return model.EntityTypePlace, true
	case "MISC":
		return model.EntityTypeConcept, true
	}
	return "", false
}
