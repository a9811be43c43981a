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
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// DefaultBatchSize is the number of resources evaluated concurrently per batch
	DefaultBatchSize = 10

	// DefaultAgeThresholdDays is the minimum age before a resource is considered
	DefaultAgeThresholdDays = 7

	// IgnoreResourceAnnotation exempts a resource from scanning when present
	IgnoreResourceAnnotation = "orc/ignore-resource"
)

// ScanPolicy is the run-level policy applied to every resource during a scan cycle.
// It is read-only for the duration of a cycle.
type ScanPolicy struct {
	// DryRun records orphans without deleting them
	DryRun bool `json:"dryRun"`

	// BatchSize is the number of resources evaluated concurrently
	// +kubebuilder:validation:Minimum=1
	BatchSize int `json:"batchSize"`

	// AgeThresholdDays is the minimum resource age in days. Zero disables the check.
	// +kubebuilder:validation:Minimum=0
	AgeThresholdDays int `json:"ageThresholdDays"`

	// IgnoredAnnotations lists annotation keys that exempt a resource
	// +optional
	IgnoredAnnotations []string `json:"ignoredAnnotations,omitempty"`
}

// DefaultScanPolicy returns the policy used when nothing is configured.
// Dry-run is on by default so a fresh install never deletes anything.
func DefaultScanPolicy() ScanPolicy {
	return ScanPolicy{
		DryRun:             true,
		BatchSize:          DefaultBatchSize,
		AgeThresholdDays:   DefaultAgeThresholdDays,
		IgnoredAnnotations: []string{IgnoreResourceAnnotation},
	}
}

// Validate checks the policy for values that would make a cycle impossible
func (p ScanPolicy) Validate() error {
	if p.BatchSize <= 0 {
		return fmt.Errorf("batchSize must be greater than zero, got %d", p.BatchSize)
	}
	if p.AgeThresholdDays < 0 {
		return fmt.Errorf("ageThresholdDays must not be negative, got %d", p.AgeThresholdDays)
	}
	return nil
}

// IsIgnored reports whether the object carries any of the ignored annotations.
// Only the key is checked; the annotation value is irrelevant.
func (p ScanPolicy) IsIgnored(obj metav1.Object) bool {
	annotations := obj.GetAnnotations()
	if len(annotations) == 0 {
		return false
	}
	for _, key := range p.IgnoredAnnotations {
		if _, ok := annotations[key]; ok {
			return true
		}
	}
	return false
}

// IsOldEnough reports whether the object has existed for at least
// AgeThresholdDays. Objects without a creation timestamp are treated as old.
func (p ScanPolicy) IsOldEnough(obj metav1.Object, now time.Time) bool {
	if p.AgeThresholdDays <= 0 {
		return true
	}
	created := obj.GetCreationTimestamp()
	if created.IsZero() {
		return true
	}
	threshold := time.Duration(p.AgeThresholdDays) * 24 * time.Hour
	return now.Sub(created.Time) >= threshold
}

// SkipReason returns why the policy excludes the object, or an empty string
// when the object should be evaluated.
func (p ScanPolicy) SkipReason(obj metav1.Object, now time.Time) string {
	if p.IsIgnored(obj) {
		return "resource carries an ignored annotation"
	}
	if !p.IsOldEnough(obj, now) {
		return fmt.Sprintf("resource is younger than %d days", p.AgeThresholdDays)
	}
	return ""
}
