package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records reservation, reconciliation and ingestion outcomes.
type EngineMetrics struct {
	reservationDuration *prometheus.HistogramVec
	reservations        *prometheus.CounterVec
	callbacks           *prometheus.CounterVec
	seatsRestored       prometheus.Counter
	csvRows             *prometheus.CounterVec
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	reservationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reservation_duration_seconds",
		Help:    "Duration of seat reservation attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_total",
		Help: "Seat reservation attempts by result.",
	}, []string{"result"})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Payment provider callbacks by result.",
	}, []string{"result"})
	seatsRestored := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seats_restored_total",
		Help: "Seats restored to inventory after failed payments.",
	})
	csvRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csv_rows_total",
		Help: "CSV ingestion rows by result.",
	}, []string{"result"})
	reg.MustRegister(reservationDuration, reservations, callbacks, seatsRestored, csvRows)
	return &EngineMetrics{
		reservationDuration: reservationDuration,
		reservations:        reservations,
		callbacks:           callbacks,
		seatsRestored:       seatsRestored,
		csvRows:             csvRows,
	}
}

// ObserveReservation records one reservation attempt and its duration.
func (m *EngineMetrics) ObserveReservation(result string, duration time.Duration) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(result)).Inc()
	m.reservationDuration.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

// IncCallback counts one payment callback by result.
func (m *EngineMetrics) IncCallback(result string) {
	if m == nil || m.callbacks == nil {
		return
	}
	m.callbacks.WithLabelValues(normalizeLabel(result)).Inc()
}

// AddSeatsRestored counts seats given back after failed payments.
func (m *EngineMetrics) AddSeatsRestored(seats int) {
	if m == nil || m.seatsRestored == nil || seats <= 0 {
		return
	}
	m.seatsRestored.Add(float64(seats))
}

// AddCSVRows counts ingestion rows by result.
func (m *EngineMetrics) AddCSVRows(result string, rows int) {
	if m == nil || m.csvRows == nil || rows <= 0 {
		return
	}
	m.csvRows.WithLabelValues(normalizeLabel(result)).Add(float64(rows))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
