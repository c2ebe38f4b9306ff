package tenant

import (
	"database/sql"
	"fmt"

	"github.com/sunilpateliit/GlobaLeaks/internal/models"
)

// CollectTenantData extracts a detached, referentially-closed snapshot of
// every row belonging to the given tenant. Returns ErrTenantNotFound if the
// tenant row is absent. Any query failure is fatal; a partial snapshot is
// never returned.
func CollectTenantData(db *sql.DB, tid int64) (*Snapshot, error) {
	snap := &Snapshot{Rows: make(map[string][]Row)}

	tenantRows, err := queryDetached(db, "SELECT * FROM tenant WHERE id = ?", tid)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant %d: %w", tid, err)
	}
	if len(tenantRows) == 0 {
		return nil, fmt.Errorf("tenant %d: %w", tid, ErrTenantNotFound)
	}
	snap.Tenant = tenantRows[0]
	// Zero out the id to mark the snapshot as detached from its source
	// tenant; the real id is resolved at merge time.
	snap.Tenant["id"] = models.ExportedTenantID

	// Directly-scoped entity types, serialized in full.
	for _, ent := range models.Direct {
		rows, err := queryDetached(db,
			fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", ent.Table, ent.TenantCol), tid)
		if err != nil {
			return nil, fmt.Errorf("failed to collect %s: %w", ent.Key, err)
		}
		snap.Rows[ent.Key] = rows
	}

	// Key sets derived from the direct results drive the transitive
	// collection below.
	contextIDs := idList(snap.Rows["context"], "id")
	fieldIDs := idList(snap.Rows["field"], "id")
	tipIDs := idList(snap.Rows["internaltip"], "id")
	userIDs := idList(snap.Rows["user"], "id")
	questionnaireIDs := idList(snap.Rows["questionnaire"], "id")
	statusIDs := idList(snap.Rows["submissionstatus"], "id")
	schemaHashes := distinct(idList(snap.Rows["internaltip"], "questionnaire_hash"))

	collect := func(key, filterCol string, keys []any) error {
		ent, ok := models.ByKey(key)
		if !ok {
			return fmt.Errorf("unknown entity type %q", key)
		}
		rows, err := collectRelation(db, ent.Table, filterCol, keys)
		if err != nil {
			return fmt.Errorf("failed to collect %s: %w", key, err)
		}
		snap.Rows[key] = rows
		return nil
	}

	if err := collect("archivedschema", "hash", schemaHashes); err != nil {
		return nil, err
	}
	if err := collect("comment", "internaltip_id", tipIDs); err != nil {
		return nil, err
	}
	if err := collect("contextimg", "id", contextIDs); err != nil {
		return nil, err
	}
	if err := collect("fieldanswer", "internaltip_id", tipIDs); err != nil {
		return nil, err
	}

	// Break each known cycle: a deep copy of the target set with the
	// circular column nulled, stored under its own key for priority insert.
	for _, cycle := range models.Cycles {
		target := snap.Rows[cycle.TargetKey]
		nulled := make([]Row, len(target))
		for i, row := range target {
			dup := row.Clone()
			dup[cycle.Column] = nil
			nulled[i] = dup
		}
		snap.Rows[cycle.PlaceholderKey] = nulled
	}

	fieldanswerIDs := idList(snap.Rows["fieldanswer"], "id")
	if err := collect("fieldanswergroup", "fieldanswer_id", fieldanswerIDs); err != nil {
		return nil, err
	}
	if err := collect("fieldattr", "field_id", fieldIDs); err != nil {
		return nil, err
	}
	if err := collect("fieldoption", "field_id", fieldIDs); err != nil {
		return nil, err
	}
	if err := collect("internalfile", "internaltip_id", tipIDs); err != nil {
		return nil, err
	}
	if err := collect("receiver", "id", userIDs); err != nil {
		return nil, err
	}
	if err := collect("receivercontext", "context_id", contextIDs); err != nil {
		return nil, err
	}
	if err := collect("receivertip", "internaltip_id", tipIDs); err != nil {
		return nil, err
	}

	internalfileIDs := idList(snap.Rows["internalfile"], "id")
	if err := collect("receiverfile", "internalfile_id", internalfileIDs); err != nil {
		return nil, err
	}

	receivertipIDs := idList(snap.Rows["receivertip"], "id")
	if err := collect("identityaccessrequest", "receivertip_id", receivertipIDs); err != nil {
		return nil, err
	}
	if err := collect("message", "receivertip_id", receivertipIDs); err != nil {
		return nil, err
	}
	if err := collect("step", "questionnaire_id", questionnaireIDs); err != nil {
		return nil, err
	}
	if err := collect("userimg", "id", userIDs); err != nil {
		return nil, err
	}
	if err := collect("whistleblowerfile", "receivertip_id", receivertipIDs); err != nil {
		return nil, err
	}
	if err := collect("submissionsubstatus", "submissionstatus_id", statusIDs); err != nil {
		return nil, err
	}
	if err := collect("submissionstatuschange", "internaltip_id", tipIDs); err != nil {
		return nil, err
	}

	return snap, nil
}

// collectRelation resolves a transitive entity set: one disjoint query per
// key value, so no row can be collected twice.
func collectRelation(db *sql.DB, table, filterCol string, keys []any) ([]Row, error) {
	var out []Row
	for _, key := range keys {
		rows, err := queryDetached(db,
			fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", table, filterCol), key)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// idList extracts one column from a row set, skipping NULLs.
func idList(rows []Row, col string) []any {
	var ids []any
	for _, row := range rows {
		if v := row[col]; v != nil {
			ids = append(ids, v)
		}
	}
	return ids
}

// distinct deduplicates a key list, preserving first-seen order.
func distinct(keys []any) []any {
	seen := make(map[any]bool, len(keys))
	var out []any
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
