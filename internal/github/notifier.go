// MIT License
//
// Copyright (c) 2025 The orc Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// ReportMarker identifies the comment owned by the notifier
const ReportMarker = "<!-- orc-report -->"

// maxListedOrphans caps the orphan list so the comment stays under GitHub's body limit
const maxListedOrphans = 200

// Notifier keeps a single summary comment on a GitHub issue up to date
type Notifier struct {
	client Client
	owner  string
	repo   string
	issue  int
}

// NewNotifier creates a notifier for the issue in repository ("owner/repo")
func NewNotifier(client Client, repository string, issue int) (*Notifier, error) {
	if client == nil {
		return nil, fmt.Errorf("github client is required")
	}
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("invalid repository %q: expected owner/repo", repository)
	}
	if issue <= 0 {
		return nil, fmt.Errorf("invalid issue number %d", issue)
	}
	return &Notifier{client: client, owner: owner, repo: repo, issue: issue}, nil
}

// Name identifies the notifier in logs
func (n *Notifier) Name() string {
	return "github"
}

// Publish upserts the summary comment. Clean cycles are not posted unless a
// previous summary exists, so the issue reflects that the cluster is clean again.
func (n *Notifier) Publish(ctx context.Context, report *orcv1alpha1.AggregateReport) error {
	logger := log.FromContext(ctx).WithValues("repository", n.owner+"/"+n.repo, "issue", n.issue)

	comments, err := n.client.ListIssueComments(ctx, n.owner, n.repo, n.issue)
	if err != nil {
		return err
	}

	existing := findReportComment(comments)
	clean := report.Summary.TotalOrphaned == 0 && report.Summary.TotalErrors == 0
	if existing == nil && clean {
		logger.V(1).Info("Nothing to report, skipping issue comment")
		return nil
	}

	body := RenderReport(report)
	if existing != nil {
		if existing.Body == body {
			return nil
		}
		if _, err := n.client.EditIssueComment(ctx, n.owner, n.repo, existing.ID, body); err != nil {
			return err
		}
		logger.Info("Updated report comment", "commentID", existing.ID)
		return nil
	}

	created, err := n.client.CreateIssueComment(ctx, n.owner, n.repo, n.issue, body)
	if err != nil {
		return err
	}
	logger.Info("Created report comment", "commentID", created.ID)
	return nil
}

func findReportComment(comments []*Comment) *Comment {
	for _, c := range comments {
		if c != nil && strings.HasPrefix(c.Body, ReportMarker) {
			return c
		}
	}
	return nil
}

// RenderReport formats an aggregate report as a markdown comment body
func RenderReport(report *orcv1alpha1.AggregateReport) string {
	var b strings.Builder

	b.WriteString(ReportMarker + "\n")
	b.WriteString("## Orphaned resources\n\n")
	fmt.Fprintf(&b, "Scan finished at %s in %s with outcome **%s**.\n\n",
		report.Timestamp.UTC().Format(time.RFC3339),
		time.Duration(report.Summary.ScanDuration)*time.Millisecond,
		report.Outcome())

	b.WriteString("| Kind | Scanned | Orphaned | Skipped | Errors |\n")
	b.WriteString("|------|--------:|---------:|--------:|-------:|\n")
	for _, r := range report.Reports {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d |\n",
			r.ResourceType, r.TotalResources, len(r.OrphanedResources), len(r.SkippedResources), len(r.Errors))
	}
	fmt.Fprintf(&b, "| **Total** | %d | %d | %d | %d |\n",
		report.Summary.TotalScanned, report.Summary.TotalOrphaned,
		report.Summary.TotalSkipped, report.Summary.TotalErrors)

	orphans := report.Orphans()
	if len(orphans) > 0 {
		b.WriteString("\n### Orphans\n\n")
		for i, o := range orphans {
			if i == maxListedOrphans {
				fmt.Fprintf(&b, "- ... and %d more\n", len(orphans)-maxListedOrphans)
				break
			}
			fmt.Fprintf(&b, "- `%s`: %s\n", o.Resource.QualifiedName(), o.Reason)
		}
	}

	var errs []string
	for _, r := range report.Reports {
		errs = append(errs, r.Errors...)
	}
	if len(errs) > 0 {
		b.WriteString("\n### Errors\n\n")
		for _, e := range errs {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}

	return b.String()
}
