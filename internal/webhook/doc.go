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


// Package webhook provides the on-demand scan trigger for orc.
//
// This package implements an HTTP server that lets external automation (CI
// jobs, chat-ops bots, the orc console) start a scan cycle without waiting for
// the next scheduled run.
//
// Key features:
//   - POST /scan runs a cycle and returns its summary
//   - GET /report returns the summary of the most recent cycle
//   - HMAC-SHA256 request signatures (X-Orc-Signature-256)
//   - Per-client rate limiting
//   - 409 Conflict while another cycle is running
//   - /healthz endpoint
//
// Signing a request:
//
// The signature is computed over the raw request body with the shared trigger
// secret, the same scheme GitHub uses for webhooks:
//
//	body='{}'
//	sig=$(printf '%s' "$body" | openssl dgst -sha256 -hmac "$ORC_TRIGGER_SECRET" | cut -d' ' -f2)
//	curl -X POST -H "X-Orc-Signature-256: sha256=$sig" -d "$body" http://orc:9443/scan
//
// Example usage:
//
//	server := webhook.NewServer("0.0.0.0", 9443, scheduler, triggerSecret)
//	if err := mgr.Add(server); err != nil {
//		return err
//	}
package webhook
