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

package collector

import (
	"context"
	"fmt"
	"time"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// TokenSource provides the cluster token. It is satisfied by *trust.Manager.
type TokenSource interface {
	Token() (string, error)
}

// ReportSender transmits a payload. It is satisfied by *Client.
type ReportSender interface {
	SendReport(ctx context.Context, token string, payload orcv1alpha1.OrphanedResourcesPayload) error
}

// Reporter publishes aggregate reports to the collector once a token is stored
type Reporter struct {
	tokens TokenSource
	sender ReportSender
	now    func() time.Time
}

// NewReporter creates a reporter gated on the token source
func NewReporter(tokens TokenSource, sender ReportSender) *Reporter {
	return &Reporter{
		tokens: tokens,
		sender: sender,
		now:    time.Now,
	}
}

// Name identifies the reporter in logs
func (r *Reporter) Name() string {
	return "collector"
}

// Publish sends the report. Without a stored token nothing is transmitted and
// the token error is returned.
func (r *Reporter) Publish(ctx context.Context, report *orcv1alpha1.AggregateReport) error {
	token, err := r.tokens.Token()
	if err != nil {
		return fmt.Errorf("refusing to send report: %w", err)
	}

	payload := orcv1alpha1.NewOrphanedResourcesPayload(report, r.now())
	if err := r.sender.SendReport(ctx, token, payload); err != nil {
		return err
	}

	log.FromContext(ctx).Info("Report sent to collector",
		"orphaned", len(payload.OrphanedResources),
		"fingerprint", Fingerprint(payload))
	return nil
}
