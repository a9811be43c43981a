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

// Package github publishes orc scan summaries to a GitHub issue.
//
// Many teams track cluster hygiene in an issue. The notifier keeps a single
// comment on that issue up to date with the latest cycle, so the issue shows
// the current set of orphaned resources instead of a growing comment log.
//
// Key features:
//   - Upserts one marked comment per issue (edit if present, create otherwise)
//   - Markdown summary with per-kind counts and the orphan list
//   - Retry logic with exponential backoff and jitter
//   - Rate limit handling
//
// Authentication:
//
// The client requires a GitHub token with the following scopes:
//   - repo (for private repositories) or public_repo
//
// Example usage:
//
//	client, err := github.NewClient(token)
//	if err != nil {
//	    return err
//	}
//	notifier, err := github.NewNotifier(client, "platform/cluster-hygiene", 42)
//	if err != nil {
//	    return err
//	}
//	scheduler := cleanup.NewScheduler(orch, 24*time.Hour, notifier)
package github
