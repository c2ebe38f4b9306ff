package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sunilpateliit/GlobaLeaks/internal/config"
	gldb "github.com/sunilpateliit/GlobaLeaks/internal/db"
	"github.com/sunilpateliit/GlobaLeaks/internal/models"
	"github.com/sunilpateliit/GlobaLeaks/internal/security"
	"github.com/sunilpateliit/GlobaLeaks/internal/tenant"
)

// maxNameAttempts bounds filename regeneration on collision.
const maxNameAttempts = 32

// ImportResult contains the result of an archive import.
type ImportResult struct {
	TenantID int64
	Counts   map[string]int
}

// ReadImportArchive extracts an export archive, rekeys its attachments into
// cfg.AttachmentsDir under fresh random names, and merges the bundled tenant
// into the destination database under a freshly allocated tenant id.
//
// Attachment filenames are always regenerated, even when importing into the
// instance the archive came from, so cloned tenants never share blob
// lifecycles with their source. Scratch state is removed on every exit path
// and the scratch database is securely erased.
func ReadImportArchive(db *sql.DB, blob []byte, cfg *config.Config) (*ImportResult, error) {
	scratch, err := os.MkdirTemp("", "gl-import-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := extractArchive(blob, scratch); err != nil {
		return nil, err
	}

	if err := checkFormatMarker(scratch); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(scratch, DatabaseName)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, &StructuralError{Reason: "missing bundled database"}
	}

	snap, err := collectBundledTenant(dbPath)
	if err != nil {
		return nil, err
	}

	// The live tree must exist even when nothing ends up copied into it
	// (reference-only archives), so the permission repair below cannot fail
	// after the merge has committed.
	if err := os.MkdirAll(cfg.AttachmentsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create attachments directory: %w", err)
	}

	incomingDir := filepath.Join(scratch, attachmentPrefix)
	for _, set := range models.FileSets {
		for _, row := range snap.Rows[set.Key] {
			if err := rekeyAttachment(row, set, incomingDir, cfg.AttachmentsDir); err != nil {
				return nil, err
			}
		}
	}

	tid, err := tenant.MergeTenantData(db, snap, nil)
	if err != nil {
		return nil, err
	}

	if err := security.OverwriteAndRemove(dbPath); err != nil {
		return nil, err
	}

	if err := security.FixFilePermissions(cfg.AttachmentsDir, cfg.UID, cfg.GID, 0700, 0600); err != nil {
		return nil, fmt.Errorf("failed to repair attachment permissions: %w", err)
	}

	return &ImportResult{TenantID: tid, Counts: snap.Counts()}, nil
}

func checkFormatMarker(scratch string) error {
	data, err := os.ReadFile(filepath.Join(scratch, MarkerName))
	if err != nil {
		return &StructuralError{Reason: "missing " + MarkerName + " marker"}
	}

	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return &StructuralError{Reason: "malformed " + MarkerName + " marker"}
	}
	if version != FormatVersion {
		return &StructuralError{
			Reason: fmt.Sprintf("unsupported export format %d (expected %d)", version, FormatVersion),
		}
	}
	return nil
}

// collectBundledTenant reads the sentinel tenant out of the extracted
// database. A bundled file that cannot be opened or read as a single-tenant
// database makes the whole archive structurally invalid.
func collectBundledTenant(dbPath string) (*tenant.Snapshot, error) {
	src, err := gldb.OpenExport(dbPath)
	if err != nil {
		return nil, &StructuralError{Reason: fmt.Sprintf("unreadable bundled database: %v", err)}
	}
	defer src.Close()

	snap, err := tenant.CollectTenantData(src.DB, models.ExportedTenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			return nil, &StructuralError{Reason: "bundled database holds no exported tenant"}
		}
		return nil, &StructuralError{Reason: fmt.Sprintf("corrupt bundled database: %v", err)}
	}
	return snap, nil
}

// rekeyAttachment rewrites a file-owning row's filename to a fresh random
// name and relocates the blob from the scratch extraction into the live
// attachments directory. Encrypted and plaintext content use distinct naming
// conventions, so the two categories can never collide with each other.
// Reference rows are renamed even when no blob is present.
func rekeyAttachment(row tenant.Row, set models.FileSet, incomingDir, liveDir string) error {
	origName, _ := row["filename"].(string)
	status := rowStatus(row, set)

	var newName string
	for attempt := 0; ; attempt++ {
		if attempt == maxNameAttempts {
			return fmt.Errorf("rekey %s: %w", origName, ErrFilenameCollision)
		}
		if set.Encrypted(status) {
			newName = "pgp_encrypted-" + security.RandomToken(16)
		} else {
			newName = security.RandomToken(16) + ".plain"
		}
		_, statErr := os.Stat(filepath.Join(liveDir, newName))
		if os.IsNotExist(statErr) {
			break
		}
		if statErr != nil {
			return fmt.Errorf("failed to check attachment name %s: %w", newName, statErr)
		}
	}
	row["filename"] = newName

	src := filepath.Join(incomingDir, filepath.Base(origName))
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) && status == models.StatusReference {
			// Row renamed, nothing to move.
			return nil
		}
		return &MissingAttachmentError{Entity: set.Key, Filename: origName}
	}

	if err := copyFile(src, filepath.Join(liveDir, newName)); err != nil {
		return fmt.Errorf("failed to relocate attachment %s: %w", origName, err)
	}

	// Retire the extracted plaintext copy immediately.
	return security.OverwriteAndRemove(src)
}

// extractArchive unpacks a gzip tar into dest, refusing entries that would
// escape it.
func extractArchive(blob []byte, dest string) error {
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return &StructuralError{Reason: "not a gzip archive"}
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &StructuralError{Reason: "corrupt tar stream"}
		}

		name := filepath.FromSlash(hdr.Name)
		if filepath.IsAbs(name) {
			return &StructuralError{Reason: "absolute entry name " + hdr.Name}
		}
		target := filepath.Join(dest, name)
		if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
			return &StructuralError{Reason: "unsafe entry name " + hdr.Name}
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0700); err != nil {
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}
			f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
			if err != nil {
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}
		default:
			return &StructuralError{Reason: fmt.Sprintf("unsupported entry type %d", hdr.Typeflag)}
		}
	}
}

// copyFile copies a file from src to dst, creating parent directories.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return err
	}
	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	return dstFile.Sync()
}
