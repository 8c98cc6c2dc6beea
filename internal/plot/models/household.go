package models

import (
	"time"

	"github.com/google/uuid"
)

// Household is owned by the downstream household module; this service only
// creates and deletes rows to keep parity with Plot.HouseholdCount.
// Sequence numbers run 1..N and are unique per plot. Deletion is refused by
// the store while downstream structure or log data references the row.
type Household struct {
	ID             uuid.UUID `json:"id"`
	PlotID         uuid.UUID `json:"plot_id"`
	Sequence       int       `json:"sequence"`
	ReportDatetime time.Time `json:"report_datetime"`
	CreatedAt      time.Time `json:"created_at"`
}
