/*
Copyright (c) 2025 The orc Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package orchestrator

import (
	"time"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// Cycle metrics
	scanCyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orc_scan_cycles_total",
		Help: "Total number of completed scan cycles",
	}, []string{"outcome"})

	scanCyclesRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orc_scan_cycles_rejected_total",
		Help: "Total number of scan cycles rejected because another cycle was running",
	})

	scanCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "orc_scan_cycle_duration_seconds",
		Help:    "Duration of scan cycles",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7m
	})

	// Per-kind metrics from the most recent cycle
	resourcesScanned = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orc_resources_scanned",
		Help: "Number of resources enumerated in the last cycle",
	}, []string{"kind"})

	orphanedResources = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orc_orphaned_resources",
		Help: "Number of orphaned resources found in the last cycle",
	}, []string{"kind"})

	scanErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orc_scan_errors_total",
		Help: "Total number of errors recorded while scanning",
	}, []string{"kind"})

	// Cleanup metrics
	cleanupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orc_cleanup_total",
		Help: "Total number of orphaned resource deletions",
	}, []string{"kind", "result"})
)

func init() {
	metrics.Registry.MustRegister(
		scanCyclesTotal,
		scanCyclesRejectedTotal,
		scanCycleDuration,
		resourcesScanned,
		orphanedResources,
		scanErrorsTotal,
		cleanupTotal,
	)
}

// RecordCycle records the outcome of a completed cycle
func RecordCycle(report *orcv1alpha1.AggregateReport, duration time.Duration) {
	scanCyclesTotal.WithLabelValues(string(report.Outcome())).Inc()
	scanCycleDuration.Observe(duration.Seconds())
	for i := range report.Reports {
		r := &report.Reports[i]
		resourcesScanned.WithLabelValues(r.ResourceType).Set(float64(r.TotalResources))
		orphanedResources.WithLabelValues(r.ResourceType).Set(float64(len(r.OrphanedResources)))
		if n := len(r.Errors); n > 0 {
			scanErrorsTotal.WithLabelValues(r.ResourceType).Add(float64(n))
		}
	}
}

// RecordCycleRejected records a cycle request that found another cycle running
func RecordCycleRejected() {
	scanCyclesRejectedTotal.Inc()
}

// RecordCleanup records a deletion attempt
func RecordCleanup(kind string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	cleanupTotal.WithLabelValues(kind, result).Inc()
}
