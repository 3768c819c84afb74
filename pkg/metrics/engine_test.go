package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestEngineMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewEngineMetrics(reg)

	metrics.ObserveReservation("won", 120*time.Millisecond)
	metrics.ObserveReservation("insufficient_seats", 80*time.Millisecond)
	metrics.IncCallback("applied")
	metrics.IncCallback("rejected")
	metrics.AddSeatsRestored(3)
	metrics.AddCSVRows("imported", 10)
	metrics.AddCSVRows("failed", 2)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	checks := []struct {
		metric string
		label  string
		value  string
		want   float64
	}{
		{"reservations_total", "result", "won", 1},
		{"reservations_total", "result", "insufficient_seats", 1},
		{"payment_callbacks_total", "result", "applied", 1},
		{"payment_callbacks_total", "result", "rejected", 1},
		{"csv_rows_total", "result", "imported", 10},
		{"csv_rows_total", "result", "failed", 2},
	}
	for _, c := range checks {
		got, err := fetchCounterValue(mfs, c.metric, c.label, c.value)
		if err != nil {
			t.Fatalf("fetch %s{%s=%s}: %v", c.metric, c.label, c.value, err)
		}
		if got != c.want {
			t.Fatalf("%s{%s=%s}: expected %f, got %f", c.metric, c.label, c.value, c.want, got)
		}
	}

	restored := findMetricFamily(mfs, "seats_restored_total")
	if restored == nil || restored.GetMetric()[0].GetCounter().GetValue() != 3 {
		t.Fatalf("expected seats_restored_total=3, got %v", restored)
	}
}

func TestEngineMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewEngineMetrics(nil)
	metrics.ObserveReservation("won", time.Millisecond)
	metrics.IncCallback("applied")
	metrics.AddSeatsRestored(1)
	metrics.AddCSVRows("imported", 1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
