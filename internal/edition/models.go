// Package edition models one run of an admission process.
package edition

import (
	id "ingresso/pkg/domain"
)

// Edition is a named admission cycle. Stages belong to exactly one edition.
type Edition struct {
	ID          id.EditionID
	ProcessName string
	Year        int
	Term        string // optional; empty for annual processes
}
