package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed relationships.sql
var relationshipsSQL string

//go:embed mentions.sql
var mentionsSQL string

//go:embed sessions.sql
var sessionsSQL string

//go:embed conflicts.sql
var conflictsSQL string

//go:embed queue.sql
var queueSQL string

// Function lists for verification
var EntitiesFunctions = []string{
	"init_entities",
	"upsert_entity",
	"select_entity",
	"select_entities_by_status",
	"select_entities_by_type",
	"search_entities",
	"update_entity_validation",
	"update_entity_correction",
	"update_entity_properties",
	"update_entity_embedding",
	"select_entities_by_embedding",
	"select_orphan_entities",
	"count_entities_by_type",
	"count_entities_by_status",
	"select_confidence_histogram",
	"select_top_entities",
}

var RelationshipsFunctions = []string{
	"init_relationships",
	"insert_relationship",
	"select_relationship",
	"select_relationships_for_entity",
	"select_validated_relationships",
	"count_relationships",
}

var MentionsFunctions = []string{
	"init_mentions",
	"insert_mention",
	"select_mentions_by_entity",
	"select_mentions_by_unit",
	"count_mentions_for_entities",
	"count_mentions",
	"transfer_mentions",
}

var SessionsFunctions = []string{
	"init_sessions",
	"insert_session",
	"update_session_progress",
	"update_session_status",
	"select_session",
	"select_active_session",
	"select_recent_sessions",
}

var ConflictsFunctions = []string{
	"init_conflicts",
	"insert_conflict",
	"select_conflict",
	"select_conflicts",
	"resolve_conflict",
}

var QueueFunctions = []string{
	"init_queue",
	"enqueue_entry",
	"claim_queue_entry",
	"complete_queue_entry",
	"skip_queue_entry",
	"select_queue_entry",
	"select_queue_entries",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, EntitiesFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing entities functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(entitiesSQL)
	if err != nil {
		return fmt.Errorf("error executing entities SQL: %w", err)
	}

	exist, err := checkFunctions(db, EntitiesFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL entities functions loaded successfully")
	return nil
}

// LoadRelationshipsSql loads relationship-related SQL functions
func LoadRelationshipsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, RelationshipsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing relationships functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(relationshipsSQL)
	if err != nil {
		return fmt.Errorf("error executing relationships SQL: %w", err)
	}

	exist, err := checkFunctions(db, RelationshipsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL relationships functions loaded successfully")
	return nil
}

// LoadMentionsSql loads mention-related SQL functions
func LoadMentionsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, MentionsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing mentions functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(mentionsSQL)
	if err != nil {
		return fmt.Errorf("error executing mentions SQL: %w", err)
	}

	exist, err := checkFunctions(db, MentionsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL mentions functions loaded successfully")
	return nil
}

// LoadSessionsSql loads discovery-session SQL functions
func LoadSessionsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, SessionsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing sessions functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(sessionsSQL)
	if err != nil {
		return fmt.Errorf("error executing sessions SQL: %w", err)
	}

	exist, err := checkFunctions(db, SessionsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL sessions functions loaded successfully")
	return nil
}

// LoadConflictsSql loads conflict-related SQL functions
func LoadConflictsSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, ConflictsFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing conflicts functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(conflictsSQL)
	if err != nil {
		return fmt.Errorf("error executing conflicts SQL: %w", err)
	}

	exist, err := checkFunctions(db, ConflictsFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL conflicts functions loaded successfully")
	return nil
}

// LoadQueueSql loads validation-queue SQL functions
func LoadQueueSql(db *sql.DB, force bool) error {
	if !force {
		exist, err := checkFunctions(db, QueueFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing queue functions: %w", err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(queueSQL)
	if err != nil {
		return fmt.Errorf("error executing queue SQL: %w", err)
	}

	exist, err := checkFunctions(db, QueueFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Println("SQL queue functions loaded successfully")
	return nil
}

// LoadAllSql loads all SQL functions. Entities must load first because the
// other tables reference entities(key).
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}

	if err := LoadRelationshipsSql(db, force); err != nil {
		return err
	}

	if err := LoadMentionsSql(db, force); err != nil {
		return err
	}

	if err := LoadSessionsSql(db, force); err != nil {
		return err
	}

	if err := LoadConflictsSql(db, force); err != nil {
		return err
	}

	if err := LoadQueueSql(db, force); err != nil {
		return err
	}

	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
