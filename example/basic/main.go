package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	granthika "github.com/vyasa-labs/granthika"
	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
)

// A minimal corpus sample: three slokas with Sanskrit and translation
// layers, in the standard file format.
const sampleTranslation = `balakanda::1::1::Rama was the eldest son of Dasharatha, the king of Ayodhya.
balakanda::1::2::Rama married Sita, the princess of Mithila.
balakanda::1::3::Hanuman served Rama as his greatest devotee.
`

const sampleSloka = `balakanda::1::1::रामः दशरथस्य ज्येष्ठः पुत्रः आसीत्
balakanda::1::2::रामः सीताम् उपयेमे
`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		User:     "granthika",
		Password: "granthika",
		Name:     "granthika",
		SSLMode:  "disable",
	}

	g, err := granthika.NewGranthika(dbConfig)
	if err != nil {
		log.Fatalf("Failed to create granthika: %v", err)
	}
	defer g.Close()

	// Write the sample corpus to disk in the expected layout
	corpusRoot, err := writeSampleCorpus()
	if err != nil {
		log.Fatalf("Failed to write sample corpus: %v", err)
	}
	defer os.RemoveAll(corpusRoot)

	// Run a discovery session over the corpus
	session, err := g.DiscoverFromCorpus(corpusRoot, model.DefaultSessionSettings())
	if err != nil {
		log.Fatalf("Failed to start discovery: %v", err)
	}
	g.WaitForDiscovery()

	final, err := g.Sessions.SelectSession(session.ID)
	if err != nil {
		log.Fatalf("Failed to load session: %v", err)
	}
	fmt.Printf("Discovery %s: %d units processed, %d entities found\n",
		final.Status, final.ProcessedUnits, final.EntitiesFound)

	// Validate everything the session queued for review
	for {
		entry, err := g.ClaimReview("example-reviewer")
		if err != nil {
			break
		}
		err = g.ResolveReview(entry.ID, model.ValidationDecision{
			Action:     model.ActionValidate,
			ReviewedBy: "example-reviewer",
		})
		if err != nil {
			log.Fatalf("Failed to resolve review: %v", err)
		}
		fmt.Printf("Validated %s (priority %d)\n", entry.EntityKey, entry.Priority)
	}

	// Expand the validated graph from Rama
	contextSet, err := g.Expand(
		[]string{model.EntityKey("rama")},
		model.ExpandConfig{MaxHops: 2, MaxNodes: 10},
	)
	if err != nil {
		log.Fatalf("Failed to expand: %v", err)
	}

	fmt.Printf("\nContext for rama (%d entities, %d edges):\n",
		len(contextSet.Entities), len(contextSet.Edges))
	for _, contextEntity := range contextSet.Entities {
		fmt.Printf("  %-45s hops=%d path=%v\n",
			contextEntity.Entity.Key, contextEntity.Hops, contextEntity.Path)
	}
	for _, edge := range contextSet.Edges {
		fmt.Printf("  %s -[%s]-> %s (%.2f)\n",
			edge.SubjectKey, edge.Predicate, edge.ObjectKey, edge.Confidence)
	}

	// Print aggregate statistics
	stats, err := g.Statistics()
	if err != nil {
		log.Fatalf("Failed to load statistics: %v", err)
	}
	fmt.Printf("\nGraph: %d entities, %d relationships, %d mentions\n",
		stats.TotalEntities, stats.TotalRelationships, stats.TotalMentions)
}

func writeSampleCorpus() (string, error) {
	root, err := os.MkdirTemp("", "granthika-corpus-")
	if err != nil {
		return "", err
	}

	kandaDir := filepath.Join(root, "balakanda")
	err = os.MkdirAll(kandaDir, 0o755)
	if err != nil {
		return "", err
	}

	err = os.WriteFile(filepath.Join(kandaDir, "Balakanda_sarga_1_translation.txt"), []byte(sampleTranslation), 0o644)
	if err != nil {
		return "", err
	}
	err = os.WriteFile(filepath.Join(kandaDir, "Balakanda_sarga_1_sloka.txt"), []byte(sampleSloka), 0o644)
	if err != nil {
		return "", err
	}

	return root, nil
}
