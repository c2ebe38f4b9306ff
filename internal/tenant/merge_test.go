package tenant_test

import (
	"errors"
	"testing"

	"github.com/sunilpateliit/GlobaLeaks/internal/tenant"
	"github.com/sunilpateliit/GlobaLeaks/internal/testutil"
)

// Replaying a snapshot into an empty, foreign-key-enforcing database is the
// ordering-safety contract: every table must land without a constraint error,
// and the destination content must equal the source content table by table.
func TestMergeIntoEmptyDatabase(t *testing.T) {
	src, _ := testutil.TempDB(t)
	fx := testutil.SeedSubmissionTenant(t, src, "acme")

	snap, err := tenant.CollectTenantData(src, fx.TID)
	testutil.AssertNoError(t, err)

	dst, _ := testutil.TempDB(t)
	tid, err := tenant.MergeTenantData(dst, snap, nil)
	testutil.AssertNoError(t, err)

	// Both databases hold a single tenant, so the assigned id matches the
	// source and full-table dumps must be identical.
	if tid != fx.TID {
		t.Fatalf("merged tenant id = %d, want %d", tid, fx.TID)
	}

	tables := map[string]string{
		"config":                 "var_name",
		"context":                "id",
		"field":                  "id",
		"internaltip":            "id",
		"fieldanswer":            "id",
		"fieldanswergroup":       "id",
		"receivertip":            "id",
		"receiverfile":           "id",
		"whistleblowerfile":      "id",
		"usertenant":             "user_id",
		"submissionstatuschange": "id",
	}
	for table, orderBy := range tables {
		want := testutil.DumpTable(t, src, table, orderBy)
		got := testutil.DumpTable(t, dst, table, orderBy)
		if want != got {
			t.Errorf("%s differs after merge:\n%s", table, testutil.Diff(want, got))
		}
	}
}

func TestMergeRestoresCycle(t *testing.T) {
	src, _ := testutil.TempDB(t)
	fx := testutil.SeedSubmissionTenant(t, src, "acme")

	snap, err := tenant.CollectTenantData(src, fx.TID)
	testutil.AssertNoError(t, err)

	dst, _ := testutil.TempDB(t)
	_, err = tenant.MergeTenantData(dst, snap, nil)
	testutil.AssertNoError(t, err)

	var groupID string
	err = dst.QueryRow("SELECT fieldanswergroup_id FROM fieldanswer WHERE id = ?",
		fx.ChildAnswerID).Scan(&groupID)
	testutil.AssertNoError(t, err)
	if groupID != fx.GroupID {
		t.Errorf("child answer group = %q, want %q", groupID, fx.GroupID)
	}
}

func TestMergeExplicitTenantID(t *testing.T) {
	src, _ := testutil.TempDB(t)
	fx := testutil.SeedSubmissionTenant(t, src, "acme")

	snap, err := tenant.CollectTenantData(src, fx.TID)
	testutil.AssertNoError(t, err)

	dst, _ := testutil.TempDB(t)
	sentinel := int64(0)
	tid, err := tenant.MergeTenantData(dst, snap, &sentinel)
	testutil.AssertNoError(t, err)
	if tid != 0 {
		t.Fatalf("merged tenant id = %d, want 0", tid)
	}

	// The sentinel tenant must be collectable in turn.
	back, err := tenant.CollectTenantData(dst, 0)
	testutil.AssertNoError(t, err)
	if n := len(back.Rows["internaltip"]); n != 1 {
		t.Errorf("re-collected %d internaltips, want 1", n)
	}
}

// Merging the same snapshot twice under its assigned id refreshes the rows
// instead of duplicating or erroring.
func TestMergeRefresh(t *testing.T) {
	src, _ := testutil.TempDB(t)
	fx := testutil.SeedSubmissionTenant(t, src, "acme")

	snap, err := tenant.CollectTenantData(src, fx.TID)
	testutil.AssertNoError(t, err)

	dst, _ := testutil.TempDB(t)
	tid, err := tenant.MergeTenantData(dst, snap, nil)
	testutil.AssertNoError(t, err)

	// Drift the clone, then refresh it from the snapshot.
	testutil.MustExec(t, dst, "UPDATE config SET value = 'drifted' WHERE tid = ? AND var_name = 'name'", tid)

	if _, err := tenant.MergeTenantData(dst, snap, &tid); err != nil {
		t.Fatalf("refresh merge failed: %v", err)
	}

	var value string
	err = dst.QueryRow("SELECT value FROM config WHERE tid = ? AND var_name = 'name'", tid).Scan(&value)
	testutil.AssertNoError(t, err)
	if value != "acme" {
		t.Errorf("config value after refresh = %q, want %q", value, "acme")
	}

	var n int
	err = dst.QueryRow("SELECT COUNT(*) FROM fieldanswer").Scan(&n)
	testutil.AssertNoError(t, err)
	if n != 2 {
		t.Errorf("fieldanswer count after refresh = %d, want 2", n)
	}
}

func TestMergeRollsBackOnFailure(t *testing.T) {
	src, _ := testutil.TempDB(t)
	fx := testutil.SeedSubmissionTenant(t, src, "acme")

	snap, err := tenant.CollectTenantData(src, fx.TID)
	testutil.AssertNoError(t, err)

	// Violate the receiverfile status constraint mid-replay.
	snap.Rows["receiverfile"][0]["status"] = "bogus"

	dst, _ := testutil.TempDB(t)
	_, err = tenant.MergeTenantData(dst, snap, nil)
	testutil.AssertError(t, err)

	var merr *tenant.MergeError
	if !errors.As(err, &merr) {
		t.Fatalf("expected *MergeError, got %T: %v", err, err)
	}
	if merr.Entity != "receiverfile" {
		t.Errorf("MergeError.Entity = %q, want %q", merr.Entity, "receiverfile")
	}

	var n int
	if err := dst.QueryRow("SELECT COUNT(*) FROM tenant").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("destination holds %d tenant rows after rollback, want 0", n)
	}
}
