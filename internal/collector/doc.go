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


// Package collector sends registration requests and scan reports to the orc collector.
//
// Key features:
//   - Register exchanges a registration token for a cluster token
//   - SendReport posts the flattened orphaned-resources payload with a bearer token
//   - Retries transient failures (HTTP 429, 5xx, transport errors) with exponential backoff
//   - Reporter refuses to transmit until the trust manager holds a token
//
// Example usage:
//
//	c, err := collector.NewClient("https://console.example.com")
//	if err != nil {
//		return err
//	}
//	reporter := collector.NewReporter(trustManager, c)
//	if err := reporter.Publish(ctx, report); err != nil {
//		logger.Error(err, "failed to send report")
//	}
package collector
