package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the plot module.
// Tracks lifecycle transitions and the update critical path.
type Metrics struct {
	PlotsCreated         prometheus.Counter
	PlotsConfirmed       prometheus.Counter
	PlotsEnrolled        prometheus.Counter
	LogEntriesCreated    prometheus.Counter
	HouseholdsReconciled prometheus.Counter
	UpdatePlotDuration   prometheus.Histogram
	CreatePlotDuration   prometheus.Histogram
}

// New creates a new Metrics instance with all plot module metrics registered.
func New() *Metrics {
	return &Metrics{
		PlotsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fieldplot_plots_created_total",
			Help: "Total number of plots created",
		}),
		PlotsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fieldplot_plots_confirmed_total",
			Help: "Total number of plots confirmed by GPS",
		}),
		PlotsEnrolled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fieldplot_plots_enrolled_total",
			Help: "Total number of plots enrolled in the survey",
		}),
		LogEntriesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fieldplot_log_entries_created_total",
			Help: "Total number of plot log entries created",
		}),
		HouseholdsReconciled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fieldplot_households_reconciled_total",
			Help: "Total number of household rows created or removed by reconciliation",
		}),
		UpdatePlotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldplot_update_plot_duration_seconds",
			Help:    "Duration of UpdatePlot operations (field sync critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CreatePlotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldplot_create_plot_duration_seconds",
			Help:    "Duration of CreatePlot operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementPlotsCreated records a successful plot creation.
func (m *Metrics) IncrementPlotsCreated() {
	m.PlotsCreated.Inc()
}

// IncrementPlotsConfirmed records a plot transitioning to confirmed.
func (m *Metrics) IncrementPlotsConfirmed() {
	m.PlotsConfirmed.Inc()
}

// IncrementPlotsEnrolled records a plot enrollment.
func (m *Metrics) IncrementPlotsEnrolled() {
	m.PlotsEnrolled.Inc()
}

// IncrementLogEntriesCreated records a new plot log entry.
func (m *Metrics) IncrementLogEntriesCreated() {
	m.LogEntriesCreated.Inc()
}

// AddHouseholdsReconciled records household rows touched by reconciliation.
func (m *Metrics) AddHouseholdsReconciled(n int) {
	m.HouseholdsReconciled.Add(float64(n))
}

// ObserveUpdatePlot records the duration of an UpdatePlot operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveUpdatePlot(start time.Time) {
	m.UpdatePlotDuration.Observe(time.Since(start).Seconds())
}

// ObserveCreatePlot records the duration of a CreatePlot operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreatePlot(start time.Time) {
	m.CreatePlotDuration.Observe(time.Since(start).Seconds())
}
