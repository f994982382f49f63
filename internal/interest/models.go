// Package interest records that a called candidate wants to proceed.
package interest

import (
	"time"

	id "ingresso/pkg/domain"
)

// Confirmation marks continued interest of one application in one stage.
// At most one exists per (application, stage).
type Confirmation struct {
	ID            id.ConfirmationID
	ApplicationID id.ApplicationID
	StageID       id.StageID
	ConfirmedAt   time.Time
}
