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


// Package kube defines the narrow capabilities orc needs from the Kubernetes API.
//
// Scanners depend on a Gateway (read plus delete), the trust manager depends on
// a SecretStore (get plus create) and registration depends on ClusterInfo.
// Each capability is satisfied by a controller-runtime client.Client, so the
// same client can be shared while tests substitute the fake client or
// interceptor functions.
//
// Key features:
//   - Gateway and SecretStore capability interfaces
//   - Cluster version lookup through the discovery API
//   - Uncached client construction for use before the manager cache starts
//
// Example usage:
//
//	cfg := ctrl.GetConfigOrDie()
//	c, err := kube.NewClient(cfg, scheme)
//	if err != nil {
//		return err
//	}
//	dc, err := discovery.NewDiscoveryClientForConfig(cfg)
//	if err != nil {
//		return err
//	}
//	info, err := kube.LookupClusterInfo(ctx, c, dc)
package kube
