package audit

import "time"

// Action names a lifecycle event worth keeping in the trail.
type Action string

const (
	ActionPlotCreated          Action = "plot_created"
	ActionPlotUpdated          Action = "plot_updated"
	ActionPlotConfirmed        Action = "plot_confirmed"
	ActionPlotUnconfirmed      Action = "plot_unconfirmed"
	ActionPlotEnrolled         Action = "plot_enrolled"
	ActionLogEntryCreated      Action = "log_entry_created"
	ActionLogEntryUpdated      Action = "log_entry_updated"
	ActionLogEntryDeleted      Action = "log_entry_deleted"
	ActionHouseholdsReconciled Action = "households_reconciled"
)

// Event is emitted from domain logic to capture key actions. Plots are never
// hard-deleted in normal operation, so the trail is the durable record of
// how a plot reached its current state. Keep it transport-agnostic so stores
// and sinks can fan out.
type Event struct {
	Timestamp      time.Time
	PlotIdentifier string
	MapArea        string
	DeviceID       string
	Action         Action
	Detail         string
}
