package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sunilpateliit/GlobaLeaks/internal/archive"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Tenant export and import",
}

var tenantExportCmd = &cobra.Command{
	Use:   "export <tenant-id>",
	Short: "Export one tenant's complete dataset as a portable archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid tenant id %q", args[0])
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = fmt.Sprintf("tenant-%d.tar.gz", tid)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		blob, err := archive.CreateExportArchive(db.DB, tid, cfg)
		if err != nil {
			return err
		}

		if err := os.WriteFile(output, blob, 0600); err != nil {
			return fmt.Errorf("failed to write archive: %w", err)
		}

		fmt.Printf("Exported tenant %d to %s (%d bytes)\n", tid, output, len(blob))
		return nil
	},
}

var tenantImportCmd = &cobra.Command{
	Use:   "import <archive>",
	Short: "Import an export archive as a new tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := archive.ReadImportArchive(db.DB, blob, cfg)
		if err != nil {
			return err
		}

		fmt.Printf("Imported tenant %d\n", result.TenantID)
		printCounts(result.Counts)
		return nil
	},
}

func printCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if counts[key] > 0 {
			fmt.Printf("  %s: %d rows\n", key, counts[key])
		}
	}
}

func init() {
	tenantExportCmd.Flags().StringP("output", "o", "", "Archive output path")
	tenantCmd.AddCommand(tenantExportCmd)
	tenantCmd.AddCommand(tenantImportCmd)
	rootCmd.AddCommand(tenantCmd)
}
