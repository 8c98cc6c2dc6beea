// Package identifier issues plot identifiers. The format is opaque to the
// rest of the system: a map code prefix followed by a per-code sequence.
// Identifiers are allocated exactly once per plot and never reused; the
// permission gate on who may draw one lives in the policy layer.
package identifier

import (
	"context"
	"fmt"
)

// Allocator issues a unique, stable plot identifier for a map code.
type Allocator interface {
	Allocate(ctx context.Context, mapCode string) (string, error)
}

func format(mapCode string, sequence int64) string {
	return fmt.Sprintf("%s%06d", mapCode, sequence)
}
