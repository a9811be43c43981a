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

package webhook

import (
	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
)

// ScanRequest is the optional body of a trigger request
type ScanRequest struct {
	// Reason is logged with the triggered cycle
	Reason string `json:"reason,omitempty"`
}

// ScanResponse summarizes a triggered or the most recent cycle
type ScanResponse struct {
	Outcome      orcv1alpha1.Outcome `json:"outcome"`
	Summary      orcv1alpha1.Summary `json:"summary"`
	Orphans      []OrphanSummary     `json:"orphans"`
	PublishError string              `json:"publishError,omitempty"`
}

// OrphanSummary identifies one orphaned resource in a response
type OrphanSummary struct {
	Resource string `json:"resource"`
	Reason   string `json:"reason"`
}

func newScanResponse(report *orcv1alpha1.AggregateReport) ScanResponse {
	resp := ScanResponse{
		Outcome: report.Outcome(),
		Summary: report.Summary,
		Orphans: []OrphanSummary{},
	}
	for _, o := range report.Orphans() {
		resp.Orphans = append(resp.Orphans, OrphanSummary{
			Resource: o.Resource.QualifiedName(),
			Reason:   o.Reason,
		})
	}
	return resp
}
