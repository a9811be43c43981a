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


// Package orchestrator runs scan cycles across all enabled scanners.
//
// A cycle runs every scanner concurrently. Within a scanner, resources are
// evaluated in batches: batches run one after another and the resources of a
// batch run concurrently. Failures are contained at two levels. A scanner
// that cannot enumerate its kind yields a report with a single
// "Scanner failed" error while sibling scanners continue. A resource whose
// evaluation fails or panics is recorded as an error and the rest of its
// batch is unaffected.
//
// Key features:
//   - At most one cycle at a time; overlapping requests get ErrCycleInProgress
//   - Uniform policy enforcement (ignore annotations, minimum age) for all kinds
//   - Dry-run gate in front of every deletion
//   - Prometheus metrics registered with the controller-runtime registry
//
// Example usage:
//
//	orch, err := orchestrator.New(scanner.NewDefaultRegistry(k8sClient), policy)
//	if err != nil {
//		return err
//	}
//	report, err := orch.RunCycle(ctx)
//	if errors.Is(err, orchestrator.ErrCycleInProgress) {
//		// another cycle is still running
//	}
package orchestrator
