// Package tenant collects one tenant's complete relational dataset into a
// detached snapshot and replays snapshots into a destination database in
// dependency order, atomically.
package tenant

import (
	"database/sql"
	"fmt"
	"sort"
)

// Row is one detached entity row: column name to driver value. Rows are
// plain values disconnected from any live transaction handle; once collected
// they are never touched again except for the tenant-reference rewrite (and
// attachment rekeying) that precedes a merge.
type Row map[string]any

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		if b, ok := v.([]byte); ok {
			v = append([]byte(nil), b...)
		}
		out[k] = v
	}
	return out
}

// Snapshot is the in-memory, referentially-closed set of all rows belonging
// to one tenant, keyed by entity-type name, plus the tenant row itself with
// its id reset to the export sentinel.
type Snapshot struct {
	Tenant Row
	Rows   map[string][]Row
}

// Counts returns per-entity row counts, the only per-row detail ever exposed
// to callers.
func (s *Snapshot) Counts() map[string]int {
	counts := make(map[string]int, len(s.Rows))
	for key, rows := range s.Rows {
		counts[key] = len(rows)
	}
	return counts
}

// columns returns the row's column names in deterministic order.
func (r Row) columns() []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// scanRows drains a result set into detached rows.
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			v := values[i]
			// Detach driver-owned buffers.
			if b, ok := v.([]byte); ok {
				v = append([]byte(nil), b...)
			}
			row[col] = v
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

// queryDetached runs a query and returns detached rows.
func queryDetached(db *sql.DB, query string, args ...any) ([]Row, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", query, err)
	}
	defer rows.Close()
	return scanRows(rows)
}
