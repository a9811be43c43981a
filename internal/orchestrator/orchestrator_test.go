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
	"fmt"
	"time"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/Danielkiss9/orc/internal/scanner"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

func newOrchestrator(policy orcv1alpha1.ScanPolicy, scanners ...scanner.Scanner) *Orchestrator {
	registry, err := scanner.NewRegistry(scanners...)
	Expect(err).NotTo(HaveOccurred())
	o, err := New(registry, policy, WithClock(func() time.Time { return testNow }))
	Expect(err).NotTo(HaveOccurred())
	return o
}

func reportFor(agg *orcv1alpha1.AggregateReport, kind string) orcv1alpha1.ScanReport {
	for _, r := range agg.Reports {
		if r.ResourceType == kind {
			return r
		}
	}
	Fail("no report for kind " + kind)
	return orcv1alpha1.ScanReport{}
}

var _ = Describe("Orchestrator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("Scenario: construction", func() {
		It("rejects an invalid policy", func() {
			registry, err := scanner.NewRegistry(newStub("Namespace"))
			Expect(err).NotTo(HaveOccurred())

			policy := orcv1alpha1.DefaultScanPolicy()
			policy.BatchSize = 0
			_, err = New(registry, policy)
			Expect(err).To(MatchError(ContainSubstring("batchSize")))
		})

		It("scans kinds in registration order", func() {
			o := newOrchestrator(orcv1alpha1.DefaultScanPolicy(), newStub("Node"), newStub("Namespace"))
			Expect(o.Kinds()).To(Equal([]string{"Node", "Namespace"}))
			Expect(o.Running()).To(BeFalse())
		})
	})

	Describe("Scenario: dry run", func() {
		It("records orphans without deleting them", func() {
			stub := newCleaner("Namespace", oldObject("stale"), oldObject("busy"))
			stub.verdicts["stale"] = orcv1alpha1.Orphaned("empty")

			o := newOrchestrator(orcv1alpha1.DefaultScanPolicy(), stub)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			r := reportFor(agg, "Namespace")
			Expect(r.TotalResources).To(Equal(2))
			Expect(r.OrphanedResources).To(HaveLen(1))
			Expect(r.OrphanedResources[0].Reason).To(Equal("empty"))
			Expect(r.ProcessedResources).To(HaveLen(2))
			Expect(r.Errors).To(BeEmpty())
			Expect(stub.cleanedNames()).To(BeEmpty())
			expectReportInvariants(r, 0)
			Expect(agg.Outcome()).To(Equal(orcv1alpha1.OutcomeSuccess))
		})
	})

	Describe("Scenario: execute mode", func() {
		It("deletes each orphan exactly once", func() {
			stub := newCleaner("Namespace", oldObject("a"), oldObject("b"), oldObject("c"))
			stub.verdicts["a"] = orcv1alpha1.Orphaned("empty")
			stub.verdicts["c"] = orcv1alpha1.Orphaned("empty")

			o := newOrchestrator(executePolicy(), stub)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(stub.cleanedNames()).To(ConsistOf("a", "c"))
			Expect(reportFor(agg, "Namespace").OrphanedResources).To(HaveLen(2))
		})

		It("keeps a resource orphaned when its deletion fails", func() {
			stub := newCleaner("Namespace", oldObject("a"), oldObject("b"))
			stub.verdicts["a"] = orcv1alpha1.Orphaned("empty")
			stub.verdicts["b"] = orcv1alpha1.Orphaned("empty")
			stub.cleanupErrs["a"] = "forbidden"

			o := newOrchestrator(executePolicy(), stub)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			r := reportFor(agg, "Namespace")
			Expect(r.OrphanedResources).To(HaveLen(2))
			Expect(r.Errors).To(ConsistOf("namespace/a: cleanup failed: forbidden"))
			Expect(stub.cleanedNames()).To(ConsistOf("a", "b"))
			Expect(agg.Outcome()).To(Equal(orcv1alpha1.OutcomePartialFailure))
		})

		It("never deletes resources of detect-only kinds", func() {
			stub := newStub("Node", oldObject("node-a"))
			stub.verdicts["node-a"] = orcv1alpha1.Orphaned("unused node")

			o := newOrchestrator(executePolicy(), stub)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(reportFor(agg, "Node").OrphanedResources).To(HaveLen(1))
			Expect(reportFor(agg, "Node").Errors).To(BeEmpty())
		})
	})

	Describe("Scenario: policy enforcement", func() {
		It("skips resources carrying an ignored annotation without evaluating them", func() {
			ignored := oldObject("keep-me")
			ignored.Annotations = map[string]string{orcv1alpha1.IgnoreResourceAnnotation: "true"}
			stub := newCleaner("Namespace", ignored, oldObject("stale"))
			stub.verdicts["keep-me"] = orcv1alpha1.Orphaned("empty")
			stub.verdicts["stale"] = orcv1alpha1.Orphaned("empty")

			o := newOrchestrator(executePolicy(), stub)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			r := reportFor(agg, "Namespace")
			Expect(r.SkippedResources).To(HaveLen(1))
			Expect(r.SkippedResources[0].Name).To(Equal("keep-me"))
			Expect(stub.evaluatedNames()).To(ConsistOf("stale"))
			Expect(stub.cleanedNames()).To(ConsistOf("stale"))
			expectReportInvariants(r, 0)
		})

		It("skips resources younger than the age threshold", func() {
			young := oldObject("young")
			young.CreationTimestamp = metav1.NewTime(testNow.Add(-time.Hour))
			stub := newStub("Namespace", young)

			o := newOrchestrator(orcv1alpha1.DefaultScanPolicy(), stub)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(reportFor(agg, "Namespace").SkippedResources).To(HaveLen(1))
			Expect(stub.evaluatedNames()).To(BeEmpty())
		})

		It("skips resources rejected by the scanner filter", func() {
			terminating := oldObject("leaving")
			deleted := metav1.NewTime(testNow)
			terminating.DeletionTimestamp = &deleted
			terminating.Finalizers = []string{"kubernetes"}
			stub := newStub("Namespace", terminating)

			o := newOrchestrator(orcv1alpha1.DefaultScanPolicy(), stub)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(reportFor(agg, "Namespace").SkippedResources).To(HaveLen(1))
		})
	})

	Describe("Scenario: failure isolation", func() {
		It("isolates a failing scanner from its siblings", func() {
			failing := newStub("PersistentVolume")
			failing.scanErr = fmt.Errorf("%w: forbidden", scanner.ErrScanFailure)
			healthy := newStub("Namespace", oldObject("a"))

			o := newOrchestrator(orcv1alpha1.DefaultScanPolicy(), failing, healthy)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			r := reportFor(agg, "PersistentVolume")
			Expect(r.TotalResources).To(BeZero())
			Expect(r.Errors).To(HaveLen(1))
			Expect(r.Errors[0]).To(HavePrefix("Scanner failed: "))
			Expect(reportFor(agg, "Namespace").ProcessedResources).To(HaveLen(1))
		})

		It("reports a failed pre-scan and still resets the index", func() {
			stub := newStub("StorageClass", oldObject("fast"))
			stub.preScanErr = errBoom

			o := newOrchestrator(orcv1alpha1.DefaultScanPolicy(), stub)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(reportFor(agg, "StorageClass").Errors).To(ConsistOf("Scanner failed: boom"))
			Expect(stub.scanCalls.Load()).To(BeZero())
			Expect(stub.resetCalls.Load()).To(Equal(int32(1)))
		})

		It("contains a panicking scanner", func() {
			panicking := newStub("Node")
			panicking.panicScan = true
			healthy := newStub("Namespace", oldObject("a"))

			o := newOrchestrator(orcv1alpha1.DefaultScanPolicy(), panicking, healthy)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(reportFor(agg, "Node").Errors).To(ConsistOf(HavePrefix("Scanner failed: ")))
			Expect(reportFor(agg, "Namespace").Errors).To(BeEmpty())
		})

		It("records per-resource errors without affecting the rest of the batch", func() {
			stub := newCleaner("Namespace", oldObject("a"), oldObject("b"), oldObject("c"), oldObject("d"))
			stub.evalErrs["b"] = errBoom
			stub.panicOn["c"] = true
			stub.verdicts["d"] = orcv1alpha1.Orphaned("empty")

			o := newOrchestrator(executePolicy(), stub)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			r := reportFor(agg, "Namespace")
			Expect(r.TotalResources).To(Equal(4))
			Expect(r.ProcessedResources).To(HaveLen(2))
			Expect(r.OrphanedResources).To(HaveLen(1))
			Expect(r.Errors).To(HaveLen(2))
			Expect(r.Errors).To(ContainElement("namespace/b: boom"))
			Expect(r.Errors).To(ContainElement(HavePrefix("namespace/c: panic: ")))
			Expect(stub.cleanedNames()).To(ConsistOf("d"))
			expectReportInvariants(r, 2)
		})

		It("treats an orphaned verdict without a reason as an error", func() {
			stub := newCleaner("Namespace", oldObject("a"))
			stub.verdicts["a"] = orcv1alpha1.OrphanVerdict{IsOrphaned: true}

			o := newOrchestrator(executePolicy(), stub)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			r := reportFor(agg, "Namespace")
			Expect(r.OrphanedResources).To(BeEmpty())
			Expect(r.Errors).To(ConsistOf(ContainSubstring("without a reason")))
			Expect(stub.cleanedNames()).To(BeEmpty())
		})
	})

	Describe("Scenario: batching", func() {
		It("never evaluates more than a batch at a time", func() {
			objs := make([]client.Object, 0, 7)
			for i := 0; i < 7; i++ {
				objs = append(objs, oldObject(fmt.Sprintf("ns-%d", i)))
			}
			stub := newStub("Namespace", objs...)
			stub.evalDelay = 20 * time.Millisecond

			policy := orcv1alpha1.DefaultScanPolicy()
			policy.BatchSize = 3
			o := newOrchestrator(policy, stub)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(stub.maxFlight.Load()).To(BeNumerically("<=", 3))
			Expect(stub.maxFlight.Load()).To(BeNumerically(">=", 1))
			Expect(stub.evaluatedNames()).To(HaveLen(7))
			Expect(reportFor(agg, "Namespace").ProcessedResources).To(HaveLen(7))
		})

		It("reports processed resources in enumeration order", func() {
			stub := newStub("Namespace", oldObject("a"), oldObject("b"), oldObject("c"))
			policy := orcv1alpha1.DefaultScanPolicy()
			policy.BatchSize = 2
			o := newOrchestrator(policy, stub)

			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			var names []string
			for _, p := range reportFor(agg, "Namespace").ProcessedResources {
				names = append(names, p.Name)
			}
			Expect(names).To(Equal([]string{"a", "b", "c"}))
		})
	})

	Describe("Scenario: mutual exclusion", func() {
		It("rejects a cycle while another is running", func() {
			stub := newStub("Namespace", oldObject("a"))
			stub.scanGate = make(chan struct{})
			o := newOrchestrator(orcv1alpha1.DefaultScanPolicy(), stub)

			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				_, err := o.RunCycle(ctx)
				done <- err
			}()

			Eventually(stub.scanCalls.Load).Should(Equal(int32(1)))
			Expect(o.Running()).To(BeTrue())

			report, err := o.RunCycle(ctx)
			Expect(err).To(MatchError(ErrCycleInProgress))
			Expect(report).To(BeNil())

			close(stub.scanGate)
			Eventually(done).Should(Receive(BeNil()))
			Expect(stub.scanCalls.Load()).To(Equal(int32(1)))
			Expect(o.Running()).To(BeFalse())

			_, err = o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Scenario: aggregation", func() {
		It("sums the per-kind reports", func() {
			ns := newStub("Namespace", oldObject("a"), oldObject("b"))
			ns.verdicts["a"] = orcv1alpha1.Orphaned("empty")
			pv := newStub("PersistentVolume", oldObject("pv-1"))
			pv.evalErrs["pv-1"] = errBoom
			sc := newStub("StorageClass")
			sc.scanErr = errBoom

			o := newOrchestrator(orcv1alpha1.DefaultScanPolicy(), ns, pv, sc)
			agg, err := o.RunCycle(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(agg.Reports).To(HaveLen(3))
			Expect(agg.Summary.TotalScanned).To(Equal(3))
			Expect(agg.Summary.TotalOrphaned).To(Equal(1))
			Expect(agg.Summary.TotalSkipped).To(BeZero())
			Expect(agg.Summary.TotalErrors).To(Equal(2))
			Expect(agg.Summary.ScanDuration).To(BeNumerically(">=", 0))
			Expect(agg.Timestamp).To(Equal(testNow))
			Expect(agg.Outcome()).To(Equal(orcv1alpha1.OutcomePartialFailure))
		})
	})
})
