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


// Package cleanup schedules orphan scan cycles and publishes their reports.
//
// The scheduler runs one cycle as soon as it starts and then one per interval
// until its context is canceled. Cycles can also be triggered on demand. A
// request that arrives while a cycle is running is rejected rather than
// queued, so a slow cycle never piles up work behind it.
//
// Key features:
//   - Runs as a controller-runtime manager Runnable (leader election aware)
//   - Initial cycle on start, then periodic cycles at a configurable interval
//   - On-demand cycles through Trigger
//   - Reports fan out to every configured sink; a failing sink does not stop the others
//
// Dry-run is the default policy. To let cycles delete orphaned resources,
// disable it in the configuration:
//
//	dryRun: false
//	batchSize: 10
//	ageThresholdDays: 7
//	ignoredAnnotations:
//	  - orc/ignore-resource
//
// Exempting Resources from Cleanup:
//
// Annotate a resource with "orc/ignore-resource" (any value) to keep it out of
// every cycle:
//
//	kubectl annotate namespace sandbox orc/ignore-resource=true
//
// Example usage:
//
//	scheduler := cleanup.NewScheduler(
//		orch,
//		24*time.Hour, // scan once a day
//		collector.NewReporter(trustManager, collectorClient),
//	)
//	if err := mgr.Add(scheduler); err != nil {
//		return err
//	}
package cleanup
