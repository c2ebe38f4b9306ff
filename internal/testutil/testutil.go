// Package testutil provides shared helpers for package tests.
package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/sunilpateliit/GlobaLeaks/internal/db"
	"github.com/sunilpateliit/GlobaLeaks/internal/models"
)

// TempDB creates a temporary schema-complete SQLite database for testing
func TempDB(t *testing.T) (*sql.DB, string) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database.DB, dbPath
}

// MustExec executes a statement, failing the test on error.
func MustExec(t *testing.T, database *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := database.Exec(query, args...); err != nil {
		t.Fatalf("Failed to exec %q: %v", query, err)
	}
}

// SeedTenant creates a tenant row and returns its assigned id.
func SeedTenant(t *testing.T, database *sql.DB, label string) int64 {
	t.Helper()
	res, err := database.Exec("INSERT INTO tenant (label, active) VALUES (?, 1)", label)
	if err != nil {
		t.Fatalf("Failed to seed tenant: %v", err)
	}
	tid, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to read tenant id: %v", err)
	}
	return tid
}

// NewID returns a fresh entity row id.
func NewID() string {
	return models.NewID()
}

// WriteFile writes content to a file under dir and returns its path.
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// DumpTable renders a table's full content as deterministic text, one line
// per row with sorted columns, ordered by the given columns.
func DumpTable(t *testing.T, database *sql.DB, table string, orderBy ...string) string {
	t.Helper()

	query := "SELECT * FROM " + table
	if len(orderBy) > 0 {
		query += " ORDER BY " + strings.Join(orderBy, ", ")
	}

	rows, err := database.Query(query)
	if err != nil {
		t.Fatalf("Failed to dump %s: %v", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		t.Fatalf("Failed to read columns of %s: %v", table, err)
	}
	sorted := append([]string(nil), cols...)
	sort.Strings(sorted)

	var sb strings.Builder
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			t.Fatalf("Failed to scan %s row: %v", table, err)
		}

		byCol := make(map[string]any, len(cols))
		for i, col := range cols {
			byCol[col] = values[i]
		}
		for _, col := range sorted {
			v := byCol[col]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			fmt.Fprintf(&sb, "%s=%v ", col, v)
		}
		sb.WriteString("\n")
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("Failed to iterate %s: %v", table, err)
	}

	return sb.String()
}

// Diff returns a unified diff of two text dumps, for readable failures.
func Diff(expected, actual string) string {
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  2,
	})
	return diff
}

// AssertNoError asserts that an error is nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// AssertError asserts that an error is not nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}
