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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/Danielkiss9/orc/internal/orchestrator"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const maxBodyBytes = 64 * 1024

// Triggerer runs a cycle on demand and remembers the last report.
// It is satisfied by *cleanup.Scheduler.
type Triggerer interface {
	Trigger(ctx context.Context) (*orcv1alpha1.AggregateReport, error)
	LastReport() *orcv1alpha1.AggregateReport
}

// Server handles scan trigger requests
type Server struct {
	addr        string
	port        int
	trigger     Triggerer
	secret      string
	server      *http.Server
	rateLimiter *RateLimiter
}

// RateLimiter provides per-client rate limiting
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*bucket
	limit    int
	window   time.Duration
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewServer creates a new trigger server
func NewServer(addr string, port int, trigger Triggerer, secret string) *Server {
	return &Server{
		addr:        addr,
		port:        port,
		trigger:     trigger,
		secret:      secret,
		rateLimiter: NewRateLimiter(5, time.Minute), // 5 triggers per minute per client
	}
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*bucket),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request from the given client should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.limiters[key]
	if !exists {
		b = &bucket{
			tokens:    rl.limit,
			lastReset: time.Now(),
		}
		rl.limiters[key] = b
	}

	if time.Since(b.lastReset) >= rl.window {
		b.tokens = rl.limit
		b.lastReset = time.Now()
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}

	return false
}

// Handler returns the HTTP routes served by the trigger server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/scan", s.handleScan)
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start serves until the context is canceled
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.addr, s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errChan := make(chan error, 1)
	go func() {
		log.Log.Info("Starting scan trigger server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// NeedLeaderElection keeps triggered cycles on the elected replica
func (s *Server) NeedLeaderElection() bool {
	return true
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Log.Info("Shutting down scan trigger server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// authenticate reads the body and checks its signature and the client's rate limit.
// It writes the error response itself and returns false on rejection.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	logger := log.FromContext(r.Context())

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		logger.Error(err, "Failed to read request body")
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return nil, false
	}
	defer r.Body.Close()

	if !ValidateSignature(payload, r.Header.Get(SignatureHeader), s.secret) {
		logger.Info("Invalid trigger signature", "remote", r.RemoteAddr)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return nil, false
	}

	if !s.rateLimiter.Allow(clientKey(r)) {
		logger.Info("Rate limit exceeded", "remote", r.RemoteAddr)
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return nil, false
	}

	return payload, true
}

// handleScan runs a cycle and responds with its summary
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	var req ScanRequest
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	}

	logger.Info("Scan triggered", "reason", req.Reason, "remote", r.RemoteAddr)
	// The cycle outlives the request: a client disconnect must not interrupt
	// deletions or the publishing of the report.
	report, err := s.trigger.Trigger(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, orchestrator.ErrCycleInProgress):
		http.Error(w, "Scan cycle already in progress", http.StatusConflict)
		return
	case report == nil && err != nil:
		logger.Error(err, "Triggered scan failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := newScanResponse(report)
	if err != nil {
		resp.PublishError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReport returns the summary of the most recent cycle
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	report := s.trigger.LastReport()
	if report == nil {
		http.Error(w, "No scan cycle has completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newScanResponse(report))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientKey identifies the caller for rate limiting
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
