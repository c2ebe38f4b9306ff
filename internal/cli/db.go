package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	gldb "github.com/sunilpateliit/GlobaLeaks/internal/db"
	"github.com/sunilpateliit/GlobaLeaks/internal/models"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database administration",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or migrate the database and seed the root tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		seeded, err := seedRootTenant(db)
		if err != nil {
			return err
		}

		if seeded {
			fmt.Printf("Initialized database at %s\n", cfg.DBPath)
		} else {
			fmt.Printf("Database at %s is up to date\n", cfg.DBPath)
		}
		return nil
	},
}

// seedRootTenant creates the root tenant with a default questionnaire and
// context on a fresh database. Idempotent: an already-populated database is
// left untouched.
func seedRootTenant(db *gldb.DB) (bool, error) {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM tenant").Scan(&count); err != nil {
		return false, fmt.Errorf("failed to inspect tenant table: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("INSERT INTO tenant (label, active) VALUES ('root', 1)")
	if err != nil {
		return false, fmt.Errorf("failed to create root tenant: %w", err)
	}
	tid, err := res.LastInsertId()
	if err != nil {
		return false, err
	}

	now := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	questionnaireID := models.NewID()
	stepID := models.NewID()
	contextID := models.NewID()

	seed := []struct {
		query string
		args  []any
	}{
		{"INSERT INTO enabledlanguage (tid, name) VALUES (?, 'en')", []any{tid}},
		{"INSERT INTO config (tid, var_name, value) VALUES (?, 'name', 'GlobaLeaks')", []any{tid}},
		{"INSERT INTO config (tid, var_name, value) VALUES (?, 'creation_date', ?)", []any{tid, now}},
		{"INSERT INTO questionnaire (id, tid, name) VALUES (?, ?, 'default')", []any{questionnaireID, tid}},
		{"INSERT INTO step (id, questionnaire_id, presentation_order) VALUES (?, ?, 0)", []any{stepID, questionnaireID}},
		{"INSERT INTO context (id, tid, questionnaire_id) VALUES (?, ?, ?)", []any{contextID, tid, questionnaireID}},
	}
	for _, s := range seed {
		if _, err := tx.Exec(s.query, s.args...); err != nil {
			return false, fmt.Errorf("failed to seed root tenant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit seed: %w", err)
	}
	return true, nil
}

func init() {
	dbCmd.AddCommand(dbInitCmd)
	rootCmd.AddCommand(dbCmd)
}
