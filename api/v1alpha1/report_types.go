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
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
)

// ResourceRef is the snapshot of a cluster object taken at scan time
type ResourceRef struct {
	// Kind is the resource type, e.g. "Namespace" or "PersistentVolume"
	Kind string `json:"kind"`

	// Name is the object name
	Name string `json:"name"`

	// Namespace is empty for cluster-scoped objects
	// +optional
	Namespace string `json:"namespace,omitempty"`

	// UID is the object UID
	UID types.UID `json:"uid"`

	// Owner is the first owner reference, if any
	// +optional
	Owner *metav1.OwnerReference `json:"owner,omitempty"`

	// Labels of the object at scan time
	// +optional
	Labels map[string]string `json:"labels,omitempty"`

	// Annotations of the object at scan time
	// +optional
	Annotations map[string]string `json:"annotations,omitempty"`

	// CreationTimestamp of the object
	CreationTimestamp time.Time `json:"creationTimestamp"`
}

// NewResourceRef snapshots the identifying metadata of obj under the given kind
func NewResourceRef(kind string, obj metav1.Object) ResourceRef {
	ref := ResourceRef{
		Kind:              kind,
		Name:              obj.GetName(),
		Namespace:         obj.GetNamespace(),
		UID:               obj.GetUID(),
		Labels:            obj.GetLabels(),
		Annotations:       obj.GetAnnotations(),
		CreationTimestamp: obj.GetCreationTimestamp().Time,
	}
	if owners := obj.GetOwnerReferences(); len(owners) > 0 {
		owner := owners[0]
		ref.Owner = &owner
	}
	return ref
}

// QualifiedName returns "kind/namespace/name", or "kind/name" for
// cluster-scoped objects. The kind is lowercased.
func (r ResourceRef) QualifiedName() string {
	kind := strings.ToLower(r.Kind)
	if r.Namespace == "" {
		return kind + "/" + r.Name
	}
	return kind + "/" + r.Namespace + "/" + r.Name
}

// OrphanVerdict is a scanner's classification of a single resource
type OrphanVerdict struct {
	IsOrphaned bool   `json:"isOrphaned"`
	Reason     string `json:"reason,omitempty"`
}

// Orphaned returns an orphaned verdict with the given reason
func Orphaned(reason string) OrphanVerdict {
	return OrphanVerdict{IsOrphaned: true, Reason: reason}
}

// InUse returns a verdict for a resource that is still referenced
func InUse() OrphanVerdict {
	return OrphanVerdict{}
}

// Valid reports whether the verdict honours the contract that every orphaned
// verdict carries a reason.
func (v OrphanVerdict) Valid() bool {
	return !v.IsOrphaned || v.Reason != ""
}

// CleanupOutcome is the result of deleting one orphaned resource.
// Exactly one of Success and Error is set.
type CleanupOutcome struct {
	Resource ResourceRef `json:"resource"`
	Success  bool        `json:"success"`
	Error    string      `json:"error,omitempty"`
}

// CleanupSucceeded builds a successful outcome
func CleanupSucceeded(ref ResourceRef) CleanupOutcome {
	return CleanupOutcome{Resource: ref, Success: true}
}

// CleanupFailed builds a failed outcome from err
func CleanupFailed(ref ResourceRef, err error) CleanupOutcome {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return CleanupOutcome{Resource: ref, Error: msg}
}

// OrphanedResource pairs a resource with the reason it was classified as orphaned
type OrphanedResource struct {
	Resource ResourceRef `json:"resource"`
	Reason   string      `json:"reason"`
}

// ScanReport is the result of running a single scanner.
//
// ProcessedResources excludes resources whose evaluation failed; those
// failures are reported in Errors instead. Every orphaned resource is also
// a processed resource.
type ScanReport struct {
	ResourceType       string             `json:"resourceType"`
	TotalResources     int                `json:"totalResources"`
	OrphanedResources  []OrphanedResource `json:"orphanedResources"`
	ProcessedResources []ResourceRef      `json:"processedResources"`
	SkippedResources   []ResourceRef      `json:"skippedResources"`
	Errors             []string           `json:"errors"`
	Timestamp          time.Time          `json:"timestamp"`
}

// NewScanReport returns an empty report for the given resource type
func NewScanReport(resourceType string, now time.Time) ScanReport {
	return ScanReport{
		ResourceType:       resourceType,
		OrphanedResources:  []OrphanedResource{},
		ProcessedResources: []ResourceRef{},
		SkippedResources:   []ResourceRef{},
		Errors:             []string{},
		Timestamp:          now,
	}
}

// FailedScanReport returns the report of a scanner that could not enumerate
// its resources.
func FailedScanReport(resourceType string, err error, now time.Time) ScanReport {
	report := NewScanReport(resourceType, now)
	report.Errors = append(report.Errors, "Scanner failed: "+err.Error())
	return report
}

// Summary holds the totals of an aggregate report
type Summary struct {
	TotalScanned  int `json:"totalScanned"`
	TotalOrphaned int `json:"totalOrphaned"`
	TotalSkipped  int `json:"totalSkipped"`
	TotalErrors   int `json:"totalErrors"`

	// ScanDuration is the wall-clock duration of the cycle in milliseconds
	ScanDuration int64 `json:"scanDuration"`
}

// Outcome classifies a finished cycle without inspecting error strings
type Outcome string

const (
	// OutcomeSuccess means every scanner and resource was processed without error
	OutcomeSuccess Outcome = "Success"
	// OutcomePartialFailure means at least one error was recorded
	OutcomePartialFailure Outcome = "PartialFailure"
)

// AggregateReport is the result of a full scan cycle
type AggregateReport struct {
	Reports   []ScanReport `json:"reports"`
	Summary   Summary      `json:"summary"`
	Timestamp time.Time    `json:"timestamp"`
}

// Aggregate sums the per-kind reports into an aggregate report. The duration
// is measured by the caller and is not derived from the per-kind reports.
func Aggregate(reports []ScanReport, duration time.Duration, now time.Time) *AggregateReport {
	agg := &AggregateReport{
		Reports:   reports,
		Timestamp: now,
	}
	for i := range reports {
		agg.Summary.TotalScanned += reports[i].TotalResources
		agg.Summary.TotalOrphaned += len(reports[i].OrphanedResources)
		agg.Summary.TotalSkipped += len(reports[i].SkippedResources)
		agg.Summary.TotalErrors += len(reports[i].Errors)
	}
	agg.Summary.ScanDuration = duration.Milliseconds()
	return agg
}

// Outcome returns OutcomePartialFailure when any error was recorded
func (a *AggregateReport) Outcome() Outcome {
	if a.Summary.TotalErrors > 0 {
		return OutcomePartialFailure
	}
	return OutcomeSuccess
}

// Orphans flattens the orphaned resources of every report
func (a *AggregateReport) Orphans() []OrphanedResource {
	var orphans []OrphanedResource
	for i := range a.Reports {
		orphans = append(orphans, a.Reports[i].OrphanedResources...)
	}
	return orphans
}
