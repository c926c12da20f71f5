// Package canonical derives entity identity keys from extracted fields.
//
// The identity of an entity is its trimmed name. Two entities of the same type with
// the same name are the same node; no further disambiguation is attempted.
package canonical

import (
	"strings"

	bramerrors "github.com/Ramsey-B/bramble/pkg/errors"
)

// IdentityField is the field whose value becomes canonical_text
const IdentityField = "name"

// Canonicalize returns the identity for a group's fields, or false when none can be derived.
func Canonicalize(fields map[string]string) (string, bool) {
	identity := strings.TrimSpace(fields[IdentityField])
	if identity == "" {
		return "", false
	}
	return identity, true
}

// Resolve is Canonicalize reporting ErrIdentityMissing instead of false.
func Resolve(fields map[string]string) (string, error) {
	identity, ok := Canonicalize(fields)
	if !ok {
		return "", bramerrors.ErrIdentityMissing
	}
	return identity, nil
}
