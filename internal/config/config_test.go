package config

import (
	"os"
	"path/filepath"
	"testing"
)

// isolate points HOME at an empty directory so per-user config files and any
// .env.local on the real filesystem cannot leak into the test, and unsets
// every GL_* variable (t.Setenv first, so the original value is restored).
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(home); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })
	for _, key := range []string{"GL_DB_PATH", "GL_ATTACHMENTS_DIR", "GL_UID", "GL_GID"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBPath != "/var/globaleaks/db/glbackend.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.AttachmentsDir != "/var/globaleaks/attachments" {
		t.Errorf("AttachmentsDir = %q", cfg.AttachmentsDir)
	}
	if cfg.UID < 0 || cfg.GID < 0 {
		t.Errorf("UID/GID defaults = %d/%d, want current process ids", cfg.UID, cfg.GID)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("GL_DB_PATH", "/srv/app/db/main.db")
	t.Setenv("GL_UID", "1001")
	t.Setenv("GL_GID", "1002")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DBPath != "/srv/app/db/main.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	// Attachments directory derives from the database location when unset.
	if cfg.AttachmentsDir != "/srv/app/attachments" {
		t.Errorf("AttachmentsDir = %q", cfg.AttachmentsDir)
	}
	if cfg.UID != 1001 || cfg.GID != 1002 {
		t.Errorf("UID/GID = %d/%d, want 1001/1002", cfg.UID, cfg.GID)
	}
}

func TestLoadExplicitAttachmentsDir(t *testing.T) {
	isolate(t)
	t.Setenv("GL_ATTACHMENTS_DIR", "/mnt/blobs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AttachmentsDir != "/mnt/blobs" {
		t.Errorf("AttachmentsDir = %q", cfg.AttachmentsDir)
	}
}

func TestLoadInvalidUID(t *testing.T) {
	isolate(t)
	t.Setenv("GL_UID", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed GL_UID")
	}
}

func TestLoadDotEnvLocal(t *testing.T) {
	home := isolate(t)

	err := os.WriteFile(filepath.Join(home, ".env.local"), []byte("GL_DB_PATH=/from/dotenv/db/x.db\n"), 0600)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "/from/dotenv/db/x.db" {
		t.Errorf("DBPath = %q, want dotenv value", cfg.DBPath)
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	home := isolate(t)

	dir := filepath.Join(home, ".config", "gl-admin")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	yaml := "db_path: /from/yaml/db/y.db\nuid: 500\ngid: 501\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "/from/yaml/db/y.db" {
		t.Errorf("DBPath = %q, want yaml value", cfg.DBPath)
	}
	if cfg.UID != 500 || cfg.GID != 501 {
		t.Errorf("UID/GID = %d/%d, want 500/501", cfg.UID, cfg.GID)
	}
}

func TestEnvBeatsYAML(t *testing.T) {
	home := isolate(t)

	dir := filepath.Join(home, ".config", "gl-admin")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("db_path: /from/yaml/db/y.db\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GL_DB_PATH", "/from/env/db/z.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "/from/env/db/z.db" {
		t.Errorf("DBPath = %q, environment must win", cfg.DBPath)
	}
}
