// Package security provides the small cryptographic and filesystem-hygiene
// primitives the export/import pipeline depends on: secure random tokens,
// overwrite-then-delete retirement of sensitive scratch files, and
// ownership/permission repair of the attachments tree.
package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// RandomToken returns n hex characters from a cryptographically secure
// source. Used for regenerated attachment filenames and receipt material.
func RandomToken(n int) string {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; refusing to
		// continue beats handing out predictable names.
		panic(fmt.Sprintf("secure random source unavailable: %v", err))
	}
	return hex.EncodeToString(buf)[:n]
}

// OverwriteAndRemove retires a sensitive file: its content is overwritten
// with random bytes and synced before the file is unlinked, so plaintext
// scratch copies do not survive on disk. A missing file is not an error.
func OverwriteAndRemove(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s for overwrite: %w", path, err)
	}

	remaining := info.Size()
	buf := make([]byte, 64*1024)
	for remaining > 0 {
		chunk := int64(len(buf))
		if remaining < chunk {
			chunk = remaining
		}
		if _, err := rand.Read(buf[:chunk]); err != nil {
			f.Close()
			return fmt.Errorf("failed to generate overwrite data: %w", err)
		}
		if _, err := f.Write(buf[:chunk]); err != nil {
			f.Close()
			return fmt.Errorf("failed to overwrite %s: %w", path, err)
		}
		remaining -= chunk
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// FixFilePermissions walks root and repairs ownership and modes: dirMode on
// directories, fileMode on regular files, uid/gid on both. Applied to the
// live attachments tree after an import. A negative uid or gid leaves
// ownership untouched.
func FixFilePermissions(root string, uid, gid int, dirMode, fileMode os.FileMode) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		mode := fileMode
		if d.IsDir() {
			mode = dirMode
		}
		if err := os.Chmod(path, mode); err != nil {
			return fmt.Errorf("failed to chmod %s: %w", path, err)
		}

		if uid >= 0 && gid >= 0 {
			if err := os.Chown(path, uid, gid); err != nil {
				return fmt.Errorf("failed to chown %s: %w", path, err)
			}
		}
		return nil
	})
}
