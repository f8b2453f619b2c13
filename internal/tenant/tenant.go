// Package tenant validates tenant identifiers and maps them to
// per-tenant snapshot directories.
//
// A tenant is the isolation boundary for a document corpus: one bot or
// workspace owns one vector store. Tenant IDs become directory names on
// disk, so validation is strict to keep path traversal out.
package tenant

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
)

// MaxIDLength is the maximum accepted tenant identifier length.
const MaxIDLength = 64

// ErrInvalidID is returned for tenant identifiers that fail validation.
var ErrInvalidID = errors.New("invalid tenant id")

// idPattern allows alphanumerics, hyphen and underscore. The first
// character must be alphanumeric so IDs never start with a dash or dot.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// ValidateID checks that id is safe to use as a tenant identifier and
// as a snapshot directory name.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidID, MaxIDLength)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q contains disallowed characters", ErrInvalidID, id)
	}
	return nil
}

// StorePath returns the snapshot directory for a tenant under basePath.
// The id is validated before joining so a crafted tenant id can never
// escape the base directory.
func StorePath(basePath, id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(basePath, id), nil
}
