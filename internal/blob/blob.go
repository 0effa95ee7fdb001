// Package blob stores the raw bytes of uploaded files, either in a local
// directory or in a Google Cloud Storage bucket.
package blob

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Open when no object exists under the key.
var ErrNotFound = errors.New("blob not found")

// Key builds the storage key for an upload: uploads/<id>/<clean filename>.
// The filename is kept for operators browsing the bucket; the id alone makes
// the key unique.
func Key(uploadID uuid.UUID, filename string) string {
	return path.Join("uploads", uploadID.String(), sanitizeName(filename))
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	s = strings.Trim(s, ".")
	if s == "" {
		return "file"
	}
	return s
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("invalid blob key %q", key)
		}
	}
	return nil
}
