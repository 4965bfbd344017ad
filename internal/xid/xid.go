package xid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns prefix_<uuidv7>. Version 7 ids sort by creation time, which keeps
// them usable as the tie-breaker of keyset pagination.
func New(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	raw := strings.ReplaceAll(id.String(), "-", "")
	if prefix == "" {
		return raw
	}
	return prefix + "_" + raw
}

// Token returns a bare random token suitable for object keys.
func Token() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
