package extract

import (
	"fmt"

	"github.com/knights-analytics/hugot"
	"github.com/vyasa-labs/granthika/helper"
)

// EmbedFunc generates an embedding for an entity label
type EmbedFunc func(text string) ([]float32, error)

// NewLabelEmbedder creates an embedder for entity labels using a sentence
// transformer. Label embeddings feed the embedding-similarity signal of
// duplicate detection.
// Uses all-MiniLM-L6-v2, which produces 384-dimensional embeddings.
func NewLabelEmbedder() (EmbedFunc, error) {
	modelName := "sentence-transformers/all-MiniLM-L6-v2"
	modelPath, err := helper.PrepareModel(modelName, "")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "label-embedder-pipeline",
	}
	embedPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create embedder pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create embedder pipeline: %w", err)
	}

	return func(text string) ([]float32, error) {
		result, err := embedPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embedding: %w", err)
		}
		if len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}
		return result.Embeddings[0], nil
	}, nil
}
