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
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/go-github/v66/github"
)

// RetryConfig defines the retry behavior for API calls
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig is used by NewClient
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
	}
}

// githubClient implements the Client interface using go-github
type githubClient struct {
	client      *github.Client
	retryConfig *RetryConfig
}

// NewClient creates a new GitHub client with the provided token
func NewClient(token string) (Client, error) {
	return newGithubClient(token), nil
}

func newGithubClient(token string) *githubClient {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	return &githubClient{
		client:      gh,
		retryConfig: DefaultRetryConfig(),
	}
}

// ListIssueComments retrieves all comments on an issue
func (c *githubClient) ListIssueComments(ctx context.Context, owner, repo string, number int) ([]*Comment, error) {
	allComments := []*Comment{}
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		var comments []*github.IssueComment
		var resp *github.Response
		var err error

		err = c.executeWithRetry(ctx, func() error {
			comments, resp, err = c.client.Issues.ListComments(ctx, owner, repo, number, opts)
			return err
		})

		if err != nil {
			return nil, fmt.Errorf("failed to list issue comments: %w", err)
		}

		for _, comment := range comments {
			allComments = append(allComments, c.convertComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allComments, nil
}

// CreateIssueComment adds a comment to an issue
func (c *githubClient) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) (*Comment, error) {
	var created *github.IssueComment

	err := c.executeWithRetry(ctx, func() error {
		var err error
		created, _, err = c.client.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
			Body: github.String(body),
		})
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create issue comment: %w", err)
	}

	return c.convertComment(created), nil
}

// EditIssueComment replaces the body of an existing comment
func (c *githubClient) EditIssueComment(ctx context.Context, owner, repo string, commentID int64, body string) (*Comment, error) {
	var edited *github.IssueComment

	err := c.executeWithRetry(ctx, func() error {
		var err error
		edited, _, err = c.client.Issues.EditComment(ctx, owner, repo, commentID, &github.IssueComment{
			Body: github.String(body),
		})
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("failed to edit issue comment: %w", err)
	}

	return c.convertComment(edited), nil
}

// executeWithRetry executes an operation with exponential backoff retry
func (c *githubClient) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		if !c.isRetryableError(lastErr) {
			return lastErr
		}

		if attempt == c.retryConfig.MaxRetries {
			break
		}

		wait := c.calculateBackoff(attempt)
		if reset, limited := c.rateLimitWait(lastErr); limited && reset > wait {
			wait = min(reset, c.retryConfig.MaxBackoff)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", c.retryConfig.MaxRetries, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func (c *githubClient) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// rateLimitWait returns how long GitHub asked us to wait, if the error says so
func (c *githubClient) rateLimitWait(err error) (time.Duration, bool) {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		if wait := time.Until(rateErr.Rate.Reset.Time); wait > 0 {
			return wait, true
		}
		return 0, true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.RetryAfter != nil {
		return *abuseErr.RetryAfter, true
	}

	return 0, false
}

// calculateBackoff calculates the backoff duration for a retry attempt
func (c *githubClient) calculateBackoff(attempt int) time.Duration {
	base := float64(c.retryConfig.InitialBackoff)
	for i := 0; i < attempt; i++ {
		base *= c.retryConfig.BackoffFactor
	}

	// jitter of +/-20%
	jitter := (rand.Float64() * 0.4) - 0.2
	backoff := time.Duration(base * (1 + jitter))

	if backoff > c.retryConfig.MaxBackoff {
		backoff = c.retryConfig.MaxBackoff
	}

	return backoff
}

// convertComment converts a GitHub issue comment to our domain model
func (c *githubClient) convertComment(comment *github.IssueComment) *Comment {
	if comment == nil {
		return nil
	}

	result := &Comment{
		ID:        comment.GetID(),
		Body:      comment.GetBody(),
		CreatedAt: comment.GetCreatedAt().Time,
		UpdatedAt: comment.GetUpdatedAt().Time,
	}

	if comment.User != nil {
		result.Author = comment.User.GetLogin()
	}

	return result
}
