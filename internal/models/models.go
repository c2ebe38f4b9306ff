// Package models describes the entity types that make up one tenant's
// dataset: which table each lives in, how it is scoped to the tenant, the
// order in which a detached row set can be replayed into an empty database,
// and the one relation cycle that needs two-phase insertion.
package models

import "github.com/google/uuid"

// ExportedTenantID is the sentinel tenant id used inside a single-tenant
// export database. The real id is assigned at import time.
const ExportedTenantID int64 = 0

// Entity describes one entity type held in a snapshot.
type Entity struct {
	// Key is the snapshot key for this entity's row set.
	Key string
	// Table is the SQL table name. Usually equal to Key; the nulled
	// cycle-break variant maps onto its true counterpart's table.
	Table string
	// TenantCol names the tenant-reference column, or is empty for entity
	// types scoped only transitively (or shared, like archivedschema).
	TenantCol string
	// PK lists the primary key columns used for merge-by-primary-key.
	PK []string
}

// Direct lists the entity types carrying a tenant-reference column,
// serialized in full when collecting a tenant.
var Direct = []Entity{
	{Key: "anomalies", Table: "anomalies", TenantCol: "tid", PK: []string{"id"}},
	{Key: "config", Table: "config", TenantCol: "tid", PK: []string{"tid", "var_name"}},
	{Key: "config_l10n", Table: "config_l10n", TenantCol: "tid", PK: []string{"tid", "lang", "var_name"}},
	{Key: "context", Table: "context", TenantCol: "tid", PK: []string{"id"}},
	{Key: "custom_texts", Table: "custom_texts", TenantCol: "tid", PK: []string{"tid", "lang"}},
	{Key: "enabledlanguage", Table: "enabledlanguage", TenantCol: "tid", PK: []string{"tid", "name"}},
	{Key: "field", Table: "field", TenantCol: "tid", PK: []string{"id"}},
	{Key: "file", Table: "file", TenantCol: "tid", PK: []string{"id"}},
	{Key: "submissionstatus", Table: "submissionstatus", TenantCol: "tid", PK: []string{"id"}},
	{Key: "internaltip", Table: "internaltip", TenantCol: "tid", PK: []string{"id"}},
	{Key: "mail", Table: "mail", TenantCol: "tid", PK: []string{"id"}},
	{Key: "questionnaire", Table: "questionnaire", TenantCol: "tid", PK: []string{"id"}},
	{Key: "signup", Table: "signup", TenantCol: "tid", PK: []string{"id"}},
	{Key: "shorturl", Table: "shorturl", TenantCol: "tid", PK: []string{"id"}},
	{Key: "stats", Table: "stats", TenantCol: "tid", PK: []string{"id"}},
	{Key: "user", Table: "user", TenantCol: "tid", PK: []string{"id"}},
	{Key: "usertenant", Table: "usertenant", TenantCol: "tenant_id", PK: []string{"user_id", "tenant_id"}},
}

// Transitive lists the entity types reached by foreign-key chasing from the
// directly-scoped sets.
var Transitive = []Entity{
	{Key: "archivedschema", Table: "archivedschema", PK: []string{"hash", "type"}},
	{Key: "comment", Table: "comment", PK: []string{"id"}},
	{Key: "contextimg", Table: "contextimg", PK: []string{"id"}},
	{Key: "fieldanswer", Table: "fieldanswer", PK: []string{"id"}},
	{Key: "fieldanswer_nulled", Table: "fieldanswer", PK: []string{"id"}},
	{Key: "fieldanswergroup", Table: "fieldanswergroup", PK: []string{"id"}},
	{Key: "fieldattr", Table: "fieldattr", PK: []string{"id"}},
	{Key: "fieldoption", Table: "fieldoption", PK: []string{"id"}},
	{Key: "internalfile", Table: "internalfile", PK: []string{"id"}},
	{Key: "receiver", Table: "receiver", PK: []string{"id"}},
	{Key: "receivercontext", Table: "receivercontext", PK: []string{"context_id", "receiver_id"}},
	{Key: "receivertip", Table: "receivertip", PK: []string{"id"}},
	{Key: "receiverfile", Table: "receiverfile", PK: []string{"id"}},
	{Key: "identityaccessrequest", Table: "identityaccessrequest", PK: []string{"id"}},
	{Key: "message", Table: "message", PK: []string{"id"}},
	{Key: "step", Table: "step", PK: []string{"id"}},
	{Key: "userimg", Table: "userimg", PK: []string{"id"}},
	{Key: "whistleblowerfile", Table: "whistleblowerfile", PK: []string{"id"}},
	{Key: "submissionsubstatus", Table: "submissionsubstatus", PK: []string{"id"}},
	{Key: "submissionstatuschange", Table: "submissionstatuschange", PK: []string{"id"}},
}

// InsertOrder is the authoritative replay order. Inserting row sets
// sequentially in this order into an empty, foreign-key-enforcing database
// cannot raise a constraint violation, given the fieldanswer two-phase
// exception below.
//
// This list is hand-maintained and reviewed, never derived from the schema.
// Any new table or relation requires editing this file and revalidating the
// whole order.
var InsertOrder = []string{
	"archivedschema",
	"anomalies",
	"enabledlanguage",
	"config",
	"config_l10n",
	"questionnaire",
	"context",
	"step",
	"custom_texts",
	"field",
	"file",
	"internaltip",
	"mail",
	"signup",
	"shorturl",
	"stats",
	"user",
	"usertenant",
	"comment",
	"contextimg",
	"fieldanswer_nulled",
	"fieldanswergroup",
	"fieldanswer",
	"fieldattr",
	"fieldoption",
	"internalfile",
	"receiver",
	"receivercontext",
	"receivertip",
	"receiverfile",
	"message",
	"identityaccessrequest",
	"userimg",
	"whistleblowerfile",
	"submissionstatus",
	"submissionsubstatus",
	"submissionstatuschange",
}

// TwoPhase describes a relation cycle broken by two-phase insertion: the
// placeholder set (a deep copy with Column nulled) is inserted in order, and
// the true set is never inserted directly. When its key comes up in
// InsertOrder, Column is patched onto the already-inserted placeholder rows,
// keyed by shared primary id.
type TwoPhase struct {
	// PlaceholderKey is the snapshot key of the nulled copy.
	PlaceholderKey string
	// TargetKey is the snapshot key holding the true rows.
	TargetKey string
	// Column is the circular foreign-key column nulled in the placeholder.
	Column string
}

// Cycles lists every sanctioned cycle break. There is exactly one today:
// fieldanswer.fieldanswergroup_id points forward into fieldanswergroup,
// which points back via fieldanswergroup.fieldanswer_id.
var Cycles = []TwoPhase{
	{PlaceholderKey: "fieldanswer_nulled", TargetKey: "fieldanswer", Column: "fieldanswergroup_id"},
}

// FileSet describes an entity type whose rows own attachment blobs on disk,
// named by their filename column.
type FileSet struct {
	Key string
	// StatusCol names the column distinguishing reference rows (content
	// intentionally not retained) from rows that must have a backing blob.
	// Empty means every row must have one.
	StatusCol string
	// Encrypted reports whether a row's blob is individually encrypted,
	// which selects the naming convention used when rekeying on import.
	Encrypted func(status string) bool
}

// FileSets lists the file-owning entity types packaged into archives.
var FileSets = []FileSet{
	{
		Key:       "receiverfile",
		StatusCol: "status",
		Encrypted: func(status string) bool { return status == "encrypted" },
	},
	{
		// Whistleblower uploads are stored plaintext-at-rest and always
		// backed by a blob.
		Key:       "whistleblowerfile",
		Encrypted: func(string) bool { return false },
	},
}

// StatusReference marks a file-owning row whose blob is intentionally absent
// because every recipient already holds an individually encrypted copy.
const StatusReference = "reference"

// ByKey returns the entity descriptor for a snapshot key.
func ByKey(key string) (Entity, bool) {
	for _, e := range Direct {
		if e.Key == key {
			return e, true
		}
	}
	for _, e := range Transitive {
		if e.Key == key {
			return e, true
		}
	}
	return Entity{}, false
}

// NewID generates a primary key for a new entity row.
func NewID() string {
	return uuid.NewString()
}
