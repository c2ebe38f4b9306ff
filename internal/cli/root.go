// Package cli implements the gl-admin command tree. Commands are thin glue
// over the library entry points; all real work happens in the tenant and
// archive packages.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/sunilpateliit/GlobaLeaks/internal/config"
	gldb "github.com/sunilpateliit/GlobaLeaks/internal/db"
)

var rootCmd = &cobra.Command{
	Use:   "gl-admin",
	Short: "Operator CLI for a multi-tenant secure-submission platform",
	Long: `gl-admin manages platform instances: database initialization and
per-tenant export/import of complete datasets as portable archives.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides GL_DB_PATH)")
}

// loadConfig resolves the effective configuration for a command invocation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// openDatabase opens the configured database and verifies the schema exists.
func openDatabase(cfg *config.Config) (*gldb.DB, error) {
	db, err := gldb.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
