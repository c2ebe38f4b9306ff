package testutil

import (
	"database/sql"
	"testing"
)

// Fixture holds the ids of a seeded submission tenant, so tests can chase
// individual rows after collect/merge round trips.
type Fixture struct {
	TID int64

	QuestionnaireID string
	StepID          string
	ContextIDs      [2]string
	FieldIDs        [3]string
	SchemaHash      string

	UserID        string
	TipID         string
	ReceiverTipID string

	InternalFileID  string
	EncryptedFileID string
	ReferenceFileID string

	EncryptedFilename string
	ReferenceFilename string
	WBFilename        string

	ParentAnswerID string
	GroupID        string
	ChildAnswerID  string
}

// SeedSubmissionTenant populates one complete tenant: configuration,
// questionnaire structure, a receiver, one submission with answers (including
// the fieldanswer/fieldanswergroup cycle), and three attachment-owning rows
// (encrypted receiverfile, reference receiverfile, whistleblower upload).
func SeedSubmissionTenant(t *testing.T, database *sql.DB, label string) *Fixture {
	t.Helper()

	fx := &Fixture{
		TID:             SeedTenant(t, database, label),
		QuestionnaireID: NewID(),
		StepID:          NewID(),
		ContextIDs:      [2]string{NewID(), NewID()},
		FieldIDs:        [3]string{NewID(), NewID(), NewID()},
		SchemaHash:      "a1b2c3d4e5f60718-" + label,
		UserID:          NewID(),
		TipID:           NewID(),
		ReceiverTipID:   NewID(),
		InternalFileID:  NewID(),
		EncryptedFileID: NewID(),
		ReferenceFileID: NewID(),

		EncryptedFilename: "pgp_encrypted-seed0001",
		ReferenceFilename: "seed0002.plain",
		WBFilename:        "seed0003.plain",

		ParentAnswerID: NewID(),
		GroupID:        NewID(),
		ChildAnswerID:  NewID(),
	}

	now := "2026-08-23T10:00:00Z"
	tid := fx.TID

	seed := []struct {
		query string
		args  []any
	}{
		{"INSERT INTO enabledlanguage (tid, name) VALUES (?, 'en')", []any{tid}},
		{"INSERT INTO config (tid, var_name, value) VALUES (?, 'name', ?)", []any{tid, label}},
		{"INSERT INTO config (tid, var_name, value) VALUES (?, 'creation_date', ?)", []any{tid, now}},
		{"INSERT INTO config_l10n (tid, lang, var_name, value) VALUES (?, 'en', 'header_title', 'Report')", []any{tid}},
		{"INSERT INTO custom_texts (tid, lang, texts) VALUES (?, 'en', '{}')", []any{tid}},
		{"INSERT INTO anomalies (id, tid, date, alarm) VALUES (?, ?, ?, 1)", []any{NewID(), tid, now}},
		{"INSERT INTO mail (id, tid, creation_date, address, subject) VALUES (?, ?, ?, 'admin@example.org', 'New report')", []any{NewID(), tid, now}},
		{"INSERT INTO stats (id, tid, start, summary) VALUES (?, ?, ?, '{}')", []any{NewID(), tid, now}},
		{"INSERT INTO shorturl (id, tid, shorturl, longurl) VALUES (?, ?, '/s/report', '/#/submission')", []any{NewID(), tid}},
		{"INSERT INTO signup (id, tid, subdomain, registration_date) VALUES (?, ?, ?, ?)", []any{NewID(), tid, label, now}},
		{"INSERT INTO file (id, tid, name, data) VALUES (?, ?, 'logo', 'AAAA')", []any{NewID(), tid}},

		{"INSERT INTO questionnaire (id, tid, name) VALUES (?, ?, 'default')", []any{fx.QuestionnaireID, tid}},
		{"INSERT INTO step (id, questionnaire_id, presentation_order) VALUES (?, ?, 0)", []any{fx.StepID, fx.QuestionnaireID}},
		{"INSERT INTO context (id, tid, questionnaire_id) VALUES (?, ?, ?)", []any{fx.ContextIDs[0], tid, fx.QuestionnaireID}},
		{"INSERT INTO context (id, tid, questionnaire_id) VALUES (?, ?, ?)", []any{fx.ContextIDs[1], tid, fx.QuestionnaireID}},
		{"INSERT INTO contextimg (id, data) VALUES (?, 'iVBOR')", []any{fx.ContextIDs[0]}},

		{"INSERT INTO field (id, tid, step_id, label, type) VALUES (?, ?, ?, 'What happened', 'textarea')", []any{fx.FieldIDs[0], tid, fx.StepID}},
		{"INSERT INTO field (id, tid, step_id, fieldgroup_id, label, type) VALUES (?, ?, ?, ?, 'Details', 'fieldgroup')", []any{fx.FieldIDs[1], tid, fx.StepID, fx.FieldIDs[0]}},
		{"INSERT INTO field (id, tid, step_id, label, type) VALUES (?, ?, ?, 'When', 'date')", []any{fx.FieldIDs[2], tid, fx.StepID}},
		{"INSERT INTO fieldattr (id, field_id, name, value) VALUES (?, ?, 'min_len', '10')", []any{NewID(), fx.FieldIDs[0]}},
		{"INSERT INTO fieldoption (id, field_id, presentation_order) VALUES (?, ?, 0)", []any{NewID(), fx.FieldIDs[2]}},

		{"INSERT INTO user (id, tid, creation_date, username, role) VALUES (?, ?, ?, 'recv1', 'receiver')", []any{fx.UserID, tid, now}},
		{"INSERT INTO usertenant (user_id, tenant_id) VALUES (?, ?)", []any{fx.UserID, tid}},
		{"INSERT INTO userimg (id, data) VALUES (?, 'iVBOR')", []any{fx.UserID}},
		{"INSERT INTO receiver (id, can_delete_submission) VALUES (?, 1)", []any{fx.UserID}},
		{"INSERT INTO receivercontext (context_id, receiver_id) VALUES (?, ?)", []any{fx.ContextIDs[0], fx.UserID}},

		{"INSERT INTO archivedschema (hash, type, schema) VALUES (?, 'questionnaire', '[]')", []any{fx.SchemaHash}},
		{"INSERT INTO internaltip (id, tid, context_id, questionnaire_hash, creation_date, update_date, progressive) VALUES (?, ?, ?, ?, ?, ?, 1)",
			[]any{fx.TipID, tid, fx.ContextIDs[0], fx.SchemaHash, now, now}},
		{"INSERT INTO comment (id, internaltip_id, creation_date, content) VALUES (?, ?, ?, 'first look')", []any{NewID(), fx.TipID, now}},

		// fieldanswer/fieldanswergroup cycle: parent answer, group under it,
		// child answer inside the group.
		{"INSERT INTO fieldanswer (id, internaltip_id, key, is_leaf, value) VALUES (?, ?, ?, 0, '')",
			[]any{fx.ParentAnswerID, fx.TipID, fx.FieldIDs[1]}},
		{"INSERT INTO fieldanswergroup (id, fieldanswer_id, number) VALUES (?, ?, 0)", []any{fx.GroupID, fx.ParentAnswerID}},
		{"INSERT INTO fieldanswer (id, internaltip_id, fieldanswergroup_id, key, is_leaf, value) VALUES (?, ?, ?, ?, 1, 'the details')",
			[]any{fx.ChildAnswerID, fx.TipID, fx.GroupID, fx.FieldIDs[0]}},

		{"INSERT INTO receivertip (id, internaltip_id, receiver_id, access_counter) VALUES (?, ?, ?, 2)",
			[]any{fx.ReceiverTipID, fx.TipID, fx.UserID}},
		{"INSERT INTO message (id, receivertip_id, creation_date, type, content) VALUES (?, ?, ?, 'receiver', 'please clarify')",
			[]any{NewID(), fx.ReceiverTipID, now}},
		{"INSERT INTO identityaccessrequest (id, receivertip_id, request_date) VALUES (?, ?, ?)",
			[]any{NewID(), fx.ReceiverTipID, now}},

		{"INSERT INTO internalfile (id, internaltip_id, creation_date, name, filename, size) VALUES (?, ?, ?, 'evidence.pdf', 'ignored', 42)",
			[]any{fx.InternalFileID, fx.TipID, now}},
		{"INSERT INTO receiverfile (id, internalfile_id, receivertip_id, filename, size, status) VALUES (?, ?, ?, ?, 42, 'encrypted')",
			[]any{fx.EncryptedFileID, fx.InternalFileID, fx.ReceiverTipID, fx.EncryptedFilename}},
		{"INSERT INTO receiverfile (id, internalfile_id, receivertip_id, filename, size, status) VALUES (?, ?, ?, ?, 42, 'reference')",
			[]any{fx.ReferenceFileID, fx.InternalFileID, fx.ReceiverTipID, fx.ReferenceFilename}},
		{"INSERT INTO whistleblowerfile (id, receivertip_id, name, filename, size, creation_date) VALUES (?, ?, 'followup.txt', ?, 7, ?)",
			[]any{NewID(), fx.ReceiverTipID, fx.WBFilename, now}},

		{"INSERT INTO submissionstatus (id, tid, label, system_defined) VALUES ('new-' || ?, ?, 'New', 1)", []any{tid, tid}},
		{"INSERT INTO submissionsubstatus (id, submissionstatus_id, label) VALUES (?, 'new-' || ?, 'Unread')", []any{NewID(), tid}},
		{"INSERT INTO submissionstatuschange (id, internaltip_id, status, changed_on) VALUES (?, ?, 'new', ?)", []any{NewID(), fx.TipID, now}},
	}

	for _, s := range seed {
		MustExec(t, database, s.query, s.args...)
	}

	return fx
}
