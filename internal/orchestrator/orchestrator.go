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
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/Danielkiss9/orc/internal/scanner"
	"github.com/go-logr/logr"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// ErrCycleInProgress is returned by RunCycle while another cycle is running
var ErrCycleInProgress = errors.New("a scan cycle is already in progress")

// Orchestrator runs scan cycles over a fixed set of scanners and a fixed policy
type Orchestrator struct {
	scanners []scanner.Scanner
	policy   orcv1alpha1.ScanPolicy
	now      func() time.Time
	running  atomic.Bool
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithClock overrides the time source used for age checks and timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an orchestrator for the scanners of the registry
func New(registry *scanner.Registry, policy orcv1alpha1.ScanPolicy, opts ...Option) (*Orchestrator, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan policy: %w", err)
	}
	o := &Orchestrator{
		scanners: registry.Scanners(),
		policy:   policy,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Policy returns the policy applied to every cycle
func (o *Orchestrator) Policy() orcv1alpha1.ScanPolicy {
	return o.policy
}

// Kinds returns the scanned kinds in cycle order
func (o *Orchestrator) Kinds() []string {
	kinds := make([]string, 0, len(o.scanners))
	for _, s := range o.scanners {
		kinds = append(kinds, s.Kind())
	}
	return kinds
}

// Running reports whether a cycle is in progress
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// RunCycle runs every scanner and returns the aggregate report. A cycle
// requested while another is running returns ErrCycleInProgress without
// touching the cluster.
func (o *Orchestrator) RunCycle(ctx context.Context) (*orcv1alpha1.AggregateReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		RecordCycleRejected()
		return nil, ErrCycleInProgress
	}
	defer o.running.Store(false)

	logger := log.FromContext(ctx)
	start := time.Now()
	logger.Info("Starting scan cycle", "scanners", len(o.scanners), "dryRun", o.policy.DryRun)

	reports := make([]orcv1alpha1.ScanReport, len(o.scanners))
	var wg conc.WaitGroup
	for i, s := range o.scanners {
		wg.Go(func() {
			reports[i] = o.runScanner(ctx, s)
		})
	}
	wg.Wait()

	duration := time.Since(start)
	report := orcv1alpha1.Aggregate(reports, duration, o.now())
	RecordCycle(report, duration)

	logger.Info("Scan cycle completed",
		"outcome", report.Outcome(),
		"scanned", report.Summary.TotalScanned,
		"orphaned", report.Summary.TotalOrphaned,
		"skipped", report.Summary.TotalSkipped,
		"errors", report.Summary.TotalErrors,
		"durationMs", report.Summary.ScanDuration)

	return report, nil
}

// runScanner isolates a scanner so that a panic anywhere in it becomes a
// failed report for its kind only.
func (o *Orchestrator) runScanner(ctx context.Context, s scanner.Scanner) orcv1alpha1.ScanReport {
	var report orcv1alpha1.ScanReport
	var catcher panics.Catcher
	catcher.Try(func() {
		report = o.scan(ctx, s)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		log.FromContext(ctx).Error(recovered.AsError(), "Scanner panicked", "kind", s.Kind())
		return orcv1alpha1.FailedScanReport(s.Kind(), recovered.AsError(), o.now())
	}
	return report
}

func (o *Orchestrator) scan(ctx context.Context, s scanner.Scanner) orcv1alpha1.ScanReport {
	logger := log.FromContext(ctx).WithValues("kind", s.Kind())

	if pre, ok := s.(scanner.PreScanner); ok {
		defer pre.Reset()
		if err := pre.PreScan(ctx); err != nil {
			logger.Error(err, "Pre-scan failed")
			return orcv1alpha1.FailedScanReport(s.Kind(), err, o.now())
		}
	}

	objs, err := s.Scan(ctx)
	if err != nil {
		logger.Error(err, "Scan failed")
		return orcv1alpha1.FailedScanReport(s.Kind(), err, o.now())
	}

	report := orcv1alpha1.NewScanReport(s.Kind(), o.now())
	report.TotalResources = len(objs)
	logger.V(1).Info("Scanning resources", "total", len(objs), "batchSize", o.policy.BatchSize)

	for start := 0; start < len(objs); start += o.policy.BatchSize {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("scan interrupted, %d resources not evaluated: %v", len(objs)-start, err))
			break
		}
		end := min(start+o.policy.BatchSize, len(objs))
		for _, res := range o.processBatch(ctx, s, objs[start:end]) {
			res.applyTo(&report)
		}
	}

	return report
}

// processBatch evaluates the batch concurrently and returns results in input order
func (o *Orchestrator) processBatch(ctx context.Context, s scanner.Scanner, batch []client.Object) []resourceResult {
	results := make([]resourceResult, len(batch))
	p := pool.New().WithMaxGoroutines(len(batch))
	for i, obj := range batch {
		p.Go(func() {
			results[i] = o.processResource(ctx, s, obj)
		})
	}
	p.Wait()
	return results
}

func (o *Orchestrator) processResource(ctx context.Context, s scanner.Scanner, obj client.Object) resourceResult {
	ref := orcv1alpha1.NewResourceRef(s.Kind(), obj)

	var res resourceResult
	var catcher panics.Catcher
	catcher.Try(func() {
		res = o.evaluate(ctx, s, obj, ref)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		log.FromContext(ctx).Error(recovered.AsError(), "Resource evaluation panicked", "resource", ref.QualifiedName())
		return failed(ref, fmt.Errorf("panic: %v", recovered.Value))
	}
	return res
}

func (o *Orchestrator) evaluate(ctx context.Context, s scanner.Scanner, obj client.Object, ref orcv1alpha1.ResourceRef) resourceResult {
	logger := log.FromContext(ctx).WithValues("resource", ref.QualifiedName())

	if reason := o.policy.SkipReason(obj, o.now()); reason != "" {
		logger.V(1).Info("Skipping resource", "reason", reason)
		return resourceResult{ref: ref, state: stateSkipped}
	}
	if !s.ShouldProcess(obj) {
		logger.V(1).Info("Skipping resource", "reason", "rejected by scanner filter")
		return resourceResult{ref: ref, state: stateSkipped}
	}

	verdict, err := s.IsOrphaned(ctx, obj)
	if err != nil {
		logger.Error(err, "Failed to evaluate resource")
		return failed(ref, err)
	}
	if !verdict.Valid() {
		return failed(ref, errors.New("orphaned verdict without a reason"))
	}
	if !verdict.IsOrphaned {
		return resourceResult{ref: ref, state: stateProcessed}
	}

	res := resourceResult{ref: ref, state: stateProcessed, orphaned: true, reason: verdict.Reason}
	logger.Info("Found orphaned resource",
		"reason", verdict.Reason,
		"labels", ref.Labels,
		"age", o.now().Sub(ref.CreationTimestamp).Round(time.Second).String(),
		"dryRun", o.policy.DryRun)

	if o.policy.DryRun {
		return res
	}
	cleaner, ok := s.(scanner.Cleaner)
	if !ok {
		logger.V(1).Info("Kind is detect-only, leaving resource in place")
		return res
	}

	return o.cleanup(ctx, logger, s.Kind(), cleaner, obj, res)
}

// cleanup deletes an orphan. A failed deletion keeps the resource orphaned
// and adds an error to the result.
func (o *Orchestrator) cleanup(ctx context.Context, logger logr.Logger, kind string, cleaner scanner.Cleaner, obj client.Object, res resourceResult) resourceResult {
	outcome := cleaner.Cleanup(ctx, obj)
	RecordCleanup(kind, outcome.Success)
	if !outcome.Success {
		logger.Info("Failed to delete orphaned resource", "error", outcome.Error)
		res.errs = append(res.errs, fmt.Sprintf("%s: cleanup failed: %s", res.ref.QualifiedName(), outcome.Error))
		return res
	}
	logger.Info("Deleted orphaned resource")
	return res
}
