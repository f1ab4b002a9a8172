// Package metrics exposes Prometheus collectors for editing sessions.
//
// Collectors register with the default registry at init time and are safe for
// concurrent use:
//
//	metrics.PastesTotal.WithLabelValues("edit", "block").Inc()
//
//	timer := metrics.NewTimer()
//	err := store.Apply(ctx, def, records)
//	metrics.SaveDuration.WithLabelValues("edit").Observe(timer.Stop().Seconds())
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PastesTotal counts handled paste events.
	// Labels: mode (create/edit), kind (ignored/single/block/table)
	PastesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pastegrid_pastes_total",
			Help: "Total number of paste events handled",
		},
		[]string{"mode", "kind"},
	)

	// SavesTotal counts save attempts that reached persistence or validation.
	// Labels: mode, result (success/invalid/failure)
	SavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pastegrid_saves_total",
			Help: "Total number of save attempts",
		},
		[]string{"mode", "result"},
	)

	// CellUpdatesTotal counts single-cell edits.
	CellUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pastegrid_cell_updates_total",
			Help: "Total number of single cell updates",
		},
		[]string{"mode"},
	)

	// SessionsActive is the number of open editing sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pastegrid_sessions_active",
			Help: "Number of open editing sessions",
		},
	)

	// SaveDuration tracks how long persistence calls take.
	SaveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pastegrid_save_duration_seconds",
			Help: "Duration of save calls to the database",
			Buckets: []float64{
				0.005, // 5ms - single row update
				0.025,
				0.1,
				0.5,
				1,
				5, // large batch insert
				10,
			},
		},
		[]string{"mode"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures one operation.
type Timer struct {
	start time.Time
}

// NewTimer starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed time.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
