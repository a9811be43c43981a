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
	"fmt"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
)

type resourceState int

const (
	stateSkipped resourceState = iota
	stateProcessed
	stateFailed
)

// resourceResult is the outcome of evaluating one resource within a batch
type resourceResult struct {
	ref      orcv1alpha1.ResourceRef
	state    resourceState
	orphaned bool
	reason   string
	errs     []string
}

func failed(ref orcv1alpha1.ResourceRef, err error) resourceResult {
	return resourceResult{
		ref:   ref,
		state: stateFailed,
		errs:  []string{fmt.Sprintf("%s: %v", ref.QualifiedName(), err)},
	}
}

// applyTo merges the result into the report. Failed resources only
// contribute their errors.
func (r resourceResult) applyTo(report *orcv1alpha1.ScanReport) {
	switch r.state {
	case stateSkipped:
		report.SkippedResources = append(report.SkippedResources, r.ref)
	case stateProcessed:
		report.ProcessedResources = append(report.ProcessedResources, r.ref)
		if r.orphaned {
			report.OrphanedResources = append(report.OrphanedResources, orcv1alpha1.OrphanedResource{
				Resource: r.ref,
				Reason:   r.reason,
			})
		}
	}
	report.Errors = append(report.Errors, r.errs...)
}
