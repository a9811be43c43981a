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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	registerPath          = "/api/clusters/register"
	orphanedResourcesPath = "/api/clusters/orphaned-resources"

	// FingerprintHeader carries a stable hash of the reported orphans
	FingerprintHeader = "X-Orc-Report-Fingerprint"

	maxErrorBody = 4096
)

// DefaultBackoff is used when no backoff is configured
var DefaultBackoff = wait.Backoff{
	Steps:    4,
	Duration: 500 * time.Millisecond,
	Factor:   2.0,
	Jitter:   0.2,
	Cap:      30 * time.Second,
}

// StatusError is returned when the collector answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("collector returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("collector returned status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the collector HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    wait.Backoff
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBackoff overrides the retry backoff
func WithBackoff(b wait.Backoff) Option {
	return func(c *Client) {
		c.backoff = b
	}
}

// NewClient creates a collector client for the given base URL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid collector URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid collector URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		backoff:    DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Register exchanges the registration token for a cluster token
func (c *Client) Register(ctx context.Context, req orcv1alpha1.RegistrationRequest) (string, error) {
	var resp orcv1alpha1.RegistrationResponse
	if err := c.post(ctx, registerPath, "", req, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to register cluster: %w", err)
	}
	return resp.Token, nil
}

// SendReport posts an orphaned-resources payload authorized by the cluster token
func (c *Client) SendReport(ctx context.Context, token string, payload orcv1alpha1.OrphanedResourcesPayload) error {
	headers := map[string]string{FingerprintHeader: Fingerprint(payload)}
	if err := c.post(ctx, orphanedResourcesPath, token, payload, headers, nil); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, token string, body any, headers map[string]string, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	logger := log.FromContext(ctx).WithValues("path", path)
	attempt := 0
	retriable := func(err error) bool {
		return ctx.Err() == nil && isRetryable(err)
	}
	return retry.OnError(c.backoff, retriable, func() error {
		attempt++
		if attempt > 1 {
			logger.V(1).Info("Retrying collector request", "attempt", attempt)
		}
		return c.do(ctx, path, token, data, headers, out)
	})
}

func (c *Client) do(ctx context.Context, path, token string, data []byte, headers map[string]string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// isRetryable determines if an error should trigger a retry. Transport
// errors, including client timeouts, are retried; cancellation is not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return true
		case statusErr.StatusCode >= 500:
			return true
		default:
			return false
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return !errors.Is(err, context.Canceled)
	}
	return false
}
