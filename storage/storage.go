// Package storage persists dispute evidence blobs. The Store interface keeps
// services independent of where blobs actually land; LocalStore is the
// disk-backed implementation used by the server and tests.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"driva/apperr"
)

// MaxEvidenceSize caps a single evidence file at 5MB.
const MaxEvidenceSize = 5 << 20

// ErrUpload signals a blob write failure.
var ErrUpload = fmt.Errorf("storage: upload failed: %w", apperr.ErrStorage)

// allowedExtensions restricts evidence to document and image formats.
var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// Store abstracts the evidence blob backend.
type Store interface {
	// Put writes the blob under key and returns its public URL.
	Put(ctx context.Context, key string, contents io.Reader) (string, error)
	// Remove deletes the blob under key. Missing blobs are not an error.
	Remove(ctx context.Context, key string) error
}

// AllowedEvidenceType reports whether the filename carries an accepted
// evidence extension.
func AllowedEvidenceType(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(path.Ext(filename))]
	return ok
}

// EvidenceKey builds a write-once blob key scoped by citizen and fine. The
// suffix is a fresh unique id, so concurrent uploads can never collide.
func EvidenceKey(citizenID, fineID, suffix, filename string) string {
	return path.Join("evidence", citizenID, fineID, suffix+"-"+sanitize(filename))
}

func sanitize(filename string) string {
	base := path.Base(filename)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}
