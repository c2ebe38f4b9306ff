package archive

import (
	"errors"
	"fmt"
)

// StructuralError reports an archive that cannot be imported at all: missing
// format marker, version mismatch, missing bundled database, or a malformed
// container. Nothing has been written to the destination when it is returned.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return "structurally invalid archive: " + e.Reason
}

// MissingAttachmentError reports a file-owning row whose backing blob is
// absent. Fatal unless the owning row is a reference row, in which case the
// blob is skipped instead.
type MissingAttachmentError struct {
	Entity   string
	Filename string
}

func (e *MissingAttachmentError) Error() string {
	return fmt.Sprintf("missing attachment %s owned by %s row", e.Filename, e.Entity)
}

// ErrFilenameCollision is returned when regenerating an attachment filename
// keeps colliding with live files. The retry cap only exists to bound the
// loop on a pathological filesystem; hitting it in practice means something
// else is wrong.
var ErrFilenameCollision = errors.New("exhausted attachment filename candidates")
