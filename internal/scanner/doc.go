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


// Package scanner implements orphan detection for individual Kubernetes resource kinds.
//
// Each scanner enumerates the resources of one kind, decides whether a resource
// is still referenced by anything in the cluster and, where deletion is safe,
// removes it. Scanners never decide policy (dry-run, ignore annotations, age);
// the orchestrator applies the run policy uniformly before a scanner sees a
// resource.
//
// Key features:
//   - Namespace: empty of pods, services, deployments, configmaps and secrets
//   - Node: no pods, or only DaemonSet pods (detect-only, never deleted)
//   - PodDisruptionBudget: selector matches no pods, deployments or statefulsets
//   - PersistentVolume: not in the Bound phase
//   - StorageClass: not the default class and referenced by no volume
//
// Scanners that need a cluster-wide index (Node, StorageClass) implement
// PreScanner. The index is built once per cycle and dropped by Reset, so a
// scanner instance can be reused across cycles without serving stale data.
//
// Example usage:
//
//	registry := scanner.NewDefaultRegistry(k8sClient)
//	for _, s := range registry.Scanners() {
//		objs, err := s.Scan(ctx)
//		...
//	}
package scanner
