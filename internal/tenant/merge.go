package tenant

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/sunilpateliit/GlobaLeaks/internal/models"
)

// MergeTenantData replays a snapshot into the destination database. With a
// nil tid the tenant row is inserted with a database-assigned id; with an
// explicit tid the tenant row (and any prior rows under the same primary
// keys) are upserted, which supports refreshing a clone. Every row's
// tenant-reference column is rewritten to the resolved id before replay,
// which is correct only because collection guarantees every row in the
// snapshot belongs exclusively to this tenant.
//
// The whole operation is one transaction: any row failure rolls everything
// back. Returns the resolved tenant id.
func MergeTenantData(db *sql.DB, snap *Snapshot, tid *int64) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	resolved, err := mergeTenantRow(tx, snap.Tenant, tid)
	if err != nil {
		return 0, &MergeError{Entity: "tenant", Err: err}
	}

	// Rewrite the tenant reference on every row set that carries one.
	for key, rows := range snap.Rows {
		ent, ok := models.ByKey(key)
		if !ok || ent.TenantCol == "" {
			continue
		}
		for _, row := range rows {
			row[ent.TenantCol] = resolved
		}
	}

	// Replay strictly in planner order. Cycle targets are never inserted:
	// their placeholder variant already is, so only the circular column is
	// patched, keyed by shared primary id.
	for _, key := range models.InsertOrder {
		if cycle, ok := cycleTarget(key); ok {
			if err := patchCycleColumn(tx, snap, cycle); err != nil {
				return 0, &MergeError{Entity: key, Err: err}
			}
			continue
		}
		if err := upsertRows(tx, key, snap.Rows[key]); err != nil {
			return 0, &MergeError{Entity: key, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit merge: %w", err)
	}

	return resolved, nil
}

func mergeTenantRow(tx *sql.Tx, tenantRow Row, tid *int64) (int64, error) {
	row := tenantRow.Clone()

	if tid == nil {
		// Let the destination assign a fresh id.
		delete(row, "id")
		cols := row.columns()
		res, err := tx.Exec(insertSQL("tenant", cols), rowArgs(row, cols)...)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}

	row["id"] = *tid
	cols := row.columns()
	if _, err := tx.Exec(upsertSQL("tenant", []string{"id"}, cols), rowArgs(row, cols)...); err != nil {
		return 0, err
	}
	return *tid, nil
}

func upsertRows(tx *sql.Tx, key string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	ent, ok := models.ByKey(key)
	if !ok {
		return fmt.Errorf("unknown entity type %q", key)
	}

	// All rows of an entity set come from the same SELECT *, so the first
	// row's column set holds for the rest.
	cols := rows[0].columns()
	stmt, err := tx.Prepare(upsertSQL(ent.Table, ent.PK, cols))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(rowArgs(row, cols)...); err != nil {
			return err
		}
	}

	return nil
}

func patchCycleColumn(tx *sql.Tx, snap *Snapshot, cycle models.TwoPhase) error {
	rows := snap.Rows[cycle.TargetKey]
	if len(rows) == 0 {
		return nil
	}

	ent, ok := models.ByKey(cycle.TargetKey)
	if !ok || len(ent.PK) != 1 {
		return fmt.Errorf("cycle target %q must have a single-column primary key", cycle.TargetKey)
	}
	pk := ent.PK[0]

	stmt, err := tx.Prepare(fmt.Sprintf(
		"UPDATE %s SET %s = ? WHERE %s = ?", ent.Table, cycle.Column, pk))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row[cycle.Column], row[pk]); err != nil {
			return err
		}
	}

	return nil
}

func cycleTarget(key string) (models.TwoPhase, bool) {
	for _, c := range models.Cycles {
		if c.TargetKey == key {
			return c, true
		}
	}
	return models.TwoPhase{}, false
}

func insertSQL(table string, cols []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders)
}

// upsertSQL builds a merge-by-primary-key statement. Rows whose every column
// is part of the key (pure join tables) have nothing to update.
func upsertSQL(table string, pk, cols []string) string {
	isPK := make(map[string]bool, len(pk))
	for _, c := range pk {
		isPK[c] = true
	}

	var updates []string
	for _, c := range cols {
		if !isPK[c] {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}

	base := insertSQL(table, cols)
	if len(updates) == 0 {
		return fmt.Sprintf("%s ON CONFLICT(%s) DO NOTHING", base, strings.Join(pk, ", "))
	}
	return fmt.Sprintf("%s ON CONFLICT(%s) DO UPDATE SET %s",
		base, strings.Join(pk, ", "), strings.Join(updates, ", "))
}

func rowArgs(row Row, cols []string) []any {
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = row[c]
	}
	return args
}
