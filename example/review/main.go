package main

import (
	"context"
	"fmt"
	"log"

	granthika "github.com/vyasa-labs/granthika"
	"github.com/vyasa-labs/granthika/helper"
	"github.com/vyasa-labs/granthika/model"
)

// This example walks the curation side of the system: entities arrive with
// problems (a misclassified place, a duplicate spelling), reviewers work
// the queue, and conflict detection plus resolution cleans up the graph.

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

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

	// Seed some problematic entities directly, as a rough extraction pass
	// might leave them.
	seedEntities(g)

	// Reviewers work the queue, highest priority first
	fmt.Println("Review queue:")
	pending, err := g.PendingReviews(10)
	if err != nil {
		log.Fatalf("Failed to list pending reviews: %v", err)
	}
	for _, entry := range pending {
		fmt.Printf("  p%d %s\n", entry.Priority, entry.EntityKey)
	}

	// First entry: Lanka was extracted as a Concept, correct it to a Place
	entry, err := g.ClaimReview("scholar-1")
	if err != nil {
		log.Fatalf("Failed to claim: %v", err)
	}
	err = g.ResolveReview(entry.ID, model.ValidationDecision{
		Action: model.ActionCorrect,
		Corrections: &model.EntityCorrections{
			Type:   model.EntityTypePlace,
			Labels: model.Labels{"sa": "लङ्का"},
		},
		ReviewedBy: "scholar-1",
		Notes:      "island kingdom, not an abstraction",
	})
	if err != nil {
		log.Fatalf("Failed to resolve: %v", err)
	}
	fmt.Printf("\nCorrected and validated %s\n", entry.EntityKey)

	// Remaining entries: plain validation
	for {
		entry, err := g.ClaimReview("scholar-1")
		if err != nil {
			break
		}
		err = g.ResolveReview(entry.ID, model.ValidationDecision{
			Action:     model.ActionValidate,
			ReviewedBy: "scholar-1",
		})
		if err != nil {
			log.Fatalf("Failed to resolve: %v", err)
		}
		fmt.Printf("Validated %s\n", entry.EntityKey)
	}

	// Detect conflicts: the duplicate spelling of Ravana should surface
	conflicts, err := g.DetectConflicts(100)
	if err != nil {
		log.Fatalf("Failed to detect conflicts: %v", err)
	}
	fmt.Printf("\nDetected %d conflicts:\n", len(conflicts))
	for _, c := range conflicts {
		fmt.Printf("  [%s] %s\n    suggested: %s\n", c.Type, c.Description, c.SuggestedResolution)
	}

	// Merge the duplicate into the canonical entity
	for _, c := range conflicts {
		if c.Type != model.ConflictDuplicate {
			continue
		}
		err = g.ResolveConflict(c.ID, model.ConflictResolution{
			Action:     model.ResolutionMerge,
			PrimaryKey: model.EntityKey("ravana"),
			ResolvedBy: "scholar-1",
			Notes:      "same demon king, variant transliteration",
		})
		if err != nil {
			log.Fatalf("Failed to resolve conflict: %v", err)
		}
		fmt.Printf("\nMerged duplicate into %s\n", model.EntityKey("ravana"))
	}

	remaining, err := g.PendingConflicts(10)
	if err != nil {
		log.Fatalf("Failed to list conflicts: %v", err)
	}
	fmt.Printf("Pending conflicts left: %d\n", len(remaining))
}

func seedEntities(g *granthika.Granthika) {
	entities := []*model.Entity{
		{
			Key:                  model.EntityKey("lanka"),
			Type:                 model.EntityTypeConcept, // wrong on purpose
			Labels:               model.Labels{"en": "Lanka"},
			ValidationStatus:     model.ValidationPending,
			ExtractionMethod:     model.ExtractionAutomated,
			ExtractionConfidence: 0.72,
		},
		{
			Key:                  model.EntityKey("ravana"),
			Type:                 model.EntityTypePerson,
			Labels:               model.Labels{"en": "Ravana"},
			ValidationStatus:     model.ValidationPending,
			ExtractionMethod:     model.ExtractionAutomated,
			ExtractionConfidence: 0.94,
		},
		{
			Key:                  model.EntityKey("raavana"),
			Type:                 model.EntityTypePerson,
			Labels:               model.Labels{"en": "Raavana"},
			ValidationStatus:     model.ValidationPending,
			ExtractionMethod:     model.ExtractionAutomated,
			ExtractionConfidence: 0.78,
		},
	}

	for _, entity := range entities {
		_, err := g.Entities.UpsertEntity(entity)
		if err != nil {
			log.Fatalf("Failed to upsert %s: %v", entity.Key, err)
		}
		_, err = g.Validation.Enqueue(entity.Key, "seeded example entity")
		if err != nil {
			log.Fatalf("Failed to enqueue %s: %v", entity.Key, err)
		}
	}
}
