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

package cleanup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/Danielkiss9/orc/internal/orchestrator"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// CycleRunner runs a single scan cycle. It is satisfied by *orchestrator.Orchestrator.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*orcv1alpha1.AggregateReport, error)
}

// Scheduler runs scan cycles periodically and on demand, and publishes
// each completed report to its sinks.
type Scheduler struct {
	runner   CycleRunner
	sinks    *MultiSink
	interval time.Duration

	mu   sync.RWMutex
	last *orcv1alpha1.AggregateReport
}

// NewScheduler creates a new scan scheduler with the specified interval.
//
// Parameters:
//   - runner: runs one cycle, typically the orchestrator
//   - interval: Duration between cycles (e.g., 24*time.Hour)
//   - sinks: destinations for every completed report
//
// Returns a configured Scheduler ready to start.
func NewScheduler(runner CycleRunner, interval time.Duration, sinks ...Sink) *Scheduler {
	return &Scheduler{
		runner:   runner,
		sinks:    NewMultiSink(sinks...),
		interval: interval,
	}
}

// Start runs an initial cycle, then one per interval until the context is
// canceled. Failed cycles are logged and the next tick proceeds as usual.
//
// Returns nil on graceful shutdown.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := log.FromContext(ctx).WithName("scheduler")
	ctx = log.IntoContext(ctx, logger)
	logger.Info("Starting scan scheduler", "interval", s.interval.String(), "sinks", s.sinks.Len())

	s.runScheduled(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping scan scheduler")
			return nil
		case <-ticker.C:
			s.runScheduled(ctx)
		}
	}
}

// NeedLeaderElection keeps cycles on the elected replica only
func (s *Scheduler) NeedLeaderElection() bool {
	return true
}

// Trigger runs a cycle immediately and publishes its report. It returns
// orchestrator.ErrCycleInProgress when another cycle is running.
func (s *Scheduler) Trigger(ctx context.Context) (*orcv1alpha1.AggregateReport, error) {
	report, err := s.runner.RunCycle(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if err := s.sinks.Publish(ctx, report); err != nil {
		return report, fmt.Errorf("cycle completed but publishing failed: %w", err)
	}
	return report, nil
}

// LastReport returns the report of the most recent completed cycle, or nil
func (s *Scheduler) LastReport() *orcv1alpha1.AggregateReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	logger := log.FromContext(ctx)

	report, err := s.Trigger(ctx)
	switch {
	case errors.Is(err, orchestrator.ErrCycleInProgress):
		logger.Info("Skipping scheduled cycle, previous cycle still running")
	case report == nil && err != nil:
		logger.Error(err, "Scan cycle failed")
	case err != nil:
		// sink failures were already logged per sink
		logger.V(1).Info("Scan cycle finished with publishing errors", "outcome", report.Outcome())
	}
}
