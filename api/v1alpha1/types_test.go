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

package v1alpha1

import (
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

var _ = Describe("ScanPolicy", func() {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	objectAged := func(age time.Duration, annotations map[string]string) *metav1.ObjectMeta {
		return &metav1.ObjectMeta{
			Name:              "test",
			CreationTimestamp: metav1.NewTime(now.Add(-age)),
			Annotations:       annotations,
		}
	}

	Context("defaults", func() {
		It("starts in dry-run with the ignore annotation", func() {
			p := DefaultScanPolicy()
			Expect(p.DryRun).To(BeTrue())
			Expect(p.BatchSize).To(Equal(10))
			Expect(p.AgeThresholdDays).To(Equal(7))
			Expect(p.IgnoredAnnotations).To(ConsistOf("orc/ignore-resource"))
			Expect(p.Validate()).To(Succeed())
		})
	})

	Context("Validate", func() {
		It("rejects a zero batch size", func() {
			p := DefaultScanPolicy()
			p.BatchSize = 0
			Expect(p.Validate()).To(MatchError(ContainSubstring("batchSize")))
		})

		It("rejects a negative age threshold", func() {
			p := DefaultScanPolicy()
			p.AgeThresholdDays = -1
			Expect(p.Validate()).To(MatchError(ContainSubstring("ageThresholdDays")))
		})
	})

	Context("IsIgnored", func() {
		It("matches on the annotation key regardless of value", func() {
			p := DefaultScanPolicy()
			Expect(p.IsIgnored(objectAged(0, map[string]string{"orc/ignore-resource": ""}))).To(BeTrue())
			Expect(p.IsIgnored(objectAged(0, map[string]string{"orc/ignore-resource": "false"}))).To(BeTrue())
		})

		It("ignores unrelated annotations", func() {
			p := DefaultScanPolicy()
			Expect(p.IsIgnored(objectAged(0, map[string]string{"team": "infra"}))).To(BeFalse())
			Expect(p.IsIgnored(objectAged(0, nil))).To(BeFalse())
		})
	})

	Context("IsOldEnough", func() {
		It("excludes objects younger than the threshold", func() {
			p := DefaultScanPolicy()
			Expect(p.IsOldEnough(objectAged(6*24*time.Hour, nil), now)).To(BeFalse())
			Expect(p.IsOldEnough(objectAged(7*24*time.Hour, nil), now)).To(BeTrue())
		})

		It("treats a zero threshold as disabled", func() {
			p := DefaultScanPolicy()
			p.AgeThresholdDays = 0
			Expect(p.IsOldEnough(objectAged(time.Minute, nil), now)).To(BeTrue())
		})

		It("treats a missing creation timestamp as old", func() {
			p := DefaultScanPolicy()
			Expect(p.IsOldEnough(&metav1.ObjectMeta{Name: "fresh"}, now)).To(BeTrue())
		})
	})

	Context("SkipReason", func() {
		It("is empty for an evaluable object", func() {
			p := DefaultScanPolicy()
			Expect(p.SkipReason(objectAged(30*24*time.Hour, nil), now)).To(BeEmpty())
		})

		It("explains young objects", func() {
			p := DefaultScanPolicy()
			Expect(p.SkipReason(objectAged(time.Hour, nil), now)).To(ContainSubstring("younger than 7 days"))
		})
	})
})

var _ = Describe("ResourceRef", func() {
	It("qualifies namespaced objects with a lowercase kind", func() {
		ref := ResourceRef{Kind: "PodDisruptionBudget", Namespace: "apps", Name: "web"}
		Expect(ref.QualifiedName()).To(Equal("poddisruptionbudget/apps/web"))
	})

	It("omits the namespace for cluster-scoped objects", func() {
		ref := ResourceRef{Kind: "StorageClass", Name: "fast"}
		Expect(ref.QualifiedName()).To(Equal("storageclass/fast"))
	})

	It("captures the first owner reference", func() {
		meta := &metav1.ObjectMeta{
			Name: "p",
			OwnerReferences: []metav1.OwnerReference{
				{Kind: "ReplicaSet", Name: "rs-1"},
				{Kind: "Other", Name: "o"},
			},
		}
		ref := NewResourceRef("Pod", meta)
		Expect(ref.Owner).NotTo(BeNil())
		Expect(ref.Owner.Name).To(Equal("rs-1"))
	})
})

var _ = Describe("OrphanVerdict and CleanupOutcome", func() {
	It("requires a reason on orphaned verdicts", func() {
		Expect(Orphaned("unused").Valid()).To(BeTrue())
		Expect(OrphanVerdict{IsOrphaned: true}.Valid()).To(BeFalse())
		Expect(InUse().Valid()).To(BeTrue())
	})

	It("sets exactly one of success and error", func() {
		ref := ResourceRef{Kind: "Namespace", Name: "old"}
		ok := CleanupSucceeded(ref)
		Expect(ok.Success).To(BeTrue())
		Expect(ok.Error).To(BeEmpty())

		failed := CleanupFailed(ref, errors.New("forbidden"))
		Expect(failed.Success).To(BeFalse())
		Expect(failed.Error).To(Equal("forbidden"))
	})
})

var _ = Describe("AggregateReport", func() {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	buildReports := func() []ScanReport {
		ns := NewScanReport("Namespace", now)
		ns.TotalResources = 3
		orphan := ResourceRef{Kind: "Namespace", Name: "stale", UID: "uid-1"}
		ns.ProcessedResources = append(ns.ProcessedResources, orphan, ResourceRef{Kind: "Namespace", Name: "busy"})
		ns.OrphanedResources = append(ns.OrphanedResources, OrphanedResource{Resource: orphan, Reason: "empty"})
		ns.SkippedResources = append(ns.SkippedResources, ResourceRef{Kind: "Namespace", Name: "kube-system"})

		pv := FailedScanReport("PersistentVolume", errors.New("forbidden"), now)
		return []ScanReport{ns, pv}
	}

	It("sums per-kind counts and keeps the measured duration", func() {
		agg := Aggregate(buildReports(), 1500*time.Millisecond, now)
		Expect(agg.Summary).To(Equal(Summary{
			TotalScanned:  3,
			TotalOrphaned: 1,
			TotalSkipped:  1,
			TotalErrors:   1,
			ScanDuration:  1500,
		}))
		Expect(agg.Outcome()).To(Equal(OutcomePartialFailure))
	})

	It("reports success when nothing failed", func() {
		agg := Aggregate(buildReports()[:1], time.Second, now)
		Expect(agg.Outcome()).To(Equal(OutcomeSuccess))
	})

	It("records scanner failures with a fixed prefix", func() {
		report := FailedScanReport("Node", errors.New("timeout"), now)
		Expect(report.TotalResources).To(BeZero())
		Expect(report.Errors).To(ConsistOf("Scanner failed: timeout"))
	})

	It("flattens orphans into the collector payload", func() {
		agg := Aggregate(buildReports(), time.Second, now)
		payload := NewOrphanedResourcesPayload(agg, now)

		data, err := json.Marshal(payload)
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]any
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded).To(HaveKey("timestamp"))
		Expect(decoded["summary"]).To(HaveKeyWithValue("scanDuration", BeNumerically("==", 1000)))

		resources := decoded["orphanedResources"].([]any)
		Expect(resources).To(HaveLen(1))
		Expect(resources[0]).To(HaveKeyWithValue("kind", "Namespace"))
		Expect(resources[0]).To(HaveKeyWithValue("reason", "empty"))
		Expect(resources[0]).To(HaveKeyWithValue("uid", "uid-1"))
	})
})
