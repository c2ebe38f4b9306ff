// Package archive packages tenant snapshots into portable gzip tar archives
// and imports such archives into a destination database.
//
// Archive layout:
//
//	EXPORT_FORMAT            ASCII decimal format version
//	globaleaks.db            single-tenant database at the sentinel tenant id
//	attachments/<filename>   every attachment blob that existed at export time
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
	"path"
	"path/filepath"
	"strconv"

	"github.com/sunilpateliit/GlobaLeaks/internal/config"
	gldb "github.com/sunilpateliit/GlobaLeaks/internal/db"
	"github.com/sunilpateliit/GlobaLeaks/internal/models"
	"github.com/sunilpateliit/GlobaLeaks/internal/tenant"
)

const (
	// FormatVersion is written to the EXPORT_FORMAT marker. An importer
	// must reject any other value outright, never coerce.
	FormatVersion = 1

	// MarkerName is the format marker member name.
	MarkerName = "EXPORT_FORMAT"

	// DatabaseName is the bundled database member name.
	DatabaseName = "globaleaks.db"

	attachmentPrefix = "attachments"
)

// CreateExportArchive collects the given tenant and packages it, with its
// attachment blobs from cfg.AttachmentsDir, into an archive.
func CreateExportArchive(db *sql.DB, tid int64, cfg *config.Config) ([]byte, error) {
	snap, err := tenant.CollectTenantData(db, tid)
	if err != nil {
		return nil, err
	}
	return packSnapshot(snap, cfg.AttachmentsDir)
}

func packSnapshot(snap *tenant.Snapshot, attachmentsDir string) ([]byte, error) {
	scratch, err := os.MkdirTemp("", "gl-export-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	dbPath := filepath.Join(scratch, DatabaseName)
	if err := writeExportDatabase(snap, dbPath); err != nil {
		return nil, err
	}

	markerPath := filepath.Join(scratch, MarkerName)
	if err := os.WriteFile(markerPath, []byte(strconv.Itoa(FormatVersion)), 0600); err != nil {
		return nil, fmt.Errorf("failed to write format marker: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	if err := addTarFile(tw, markerPath, MarkerName); err != nil {
		return nil, err
	}
	if err := addTarFile(tw, dbPath, DatabaseName); err != nil {
		return nil, err
	}

	for _, set := range models.FileSets {
		for _, row := range snap.Rows[set.Key] {
			filename, _ := row["filename"].(string)
			src := filepath.Join(attachmentsDir, filename)

			err := addTarFile(tw, src, path.Join(attachmentPrefix, filename))
			if errors.Is(err, os.ErrNotExist) {
				// Reference blobs may legitimately be gone: every
				// recipient already holds an encrypted copy.
				if rowStatus(row, set) == models.StatusReference {
					continue
				}
				return nil, &MissingAttachmentError{Entity: set.Key, Filename: filename}
			}
			if err != nil {
				return nil, err
			}
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return buf.Bytes(), nil
}

// writeExportDatabase initializes a fresh, schema-complete database and
// merges the snapshot into it at the sentinel tenant id.
func writeExportDatabase(snap *tenant.Snapshot, dbPath string) error {
	exportDB, err := gldb.OpenExport(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize export database: %w", err)
	}

	if err := exportDB.Migrate(); err != nil {
		exportDB.Close()
		return fmt.Errorf("failed to initialize export schema: %w", err)
	}

	sentinel := models.ExportedTenantID
	if _, err := tenant.MergeTenantData(exportDB.DB, snap, &sentinel); err != nil {
		exportDB.Close()
		return err
	}

	if err := exportDB.Close(); err != nil {
		return fmt.Errorf("failed to close export database: %w", err)
	}
	return nil
}

func addTarFile(tw *tar.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	hdr := &tar.Header{
		Name: name,
		Mode: 0600,
		Size: info.Size(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write archive header for %s: %w", name, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to archive %s: %w", name, err)
	}
	return nil
}

func rowStatus(row tenant.Row, set models.FileSet) string {
	if set.StatusCol == "" {
		return ""
	}
	status, _ := row[set.StatusCol].(string)
	return status
}
