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


// Package trust bootstraps the credential that authorizes orc to talk to the collector.
//
// On first start the operator exchanges a one-time registration token for a
// long-lived cluster token and stores it in a Secret. Every later start reads
// the Secret instead of registering again. Until a token is stored, nothing is
// sent to the collector.
//
// The manager moves through explicit states:
//
//	Uninitialized -> Stored                  (secret already present)
//	Uninitialized -> Registering -> Stored   (registration succeeded)
//	Uninitialized -> Registering -> Failed   (registration or persistence failed)
//	Uninitialized -> Failed                  (no secret, no registration token)
//
// Failed is terminal for the process. Two replicas registering at once is
// resolved by the Secret itself: the replica whose create conflicts re-reads
// the stored token and uses it.
//
// Secret layout:
//
//	apiVersion: v1
//	kind: Secret
//	metadata:
//	  name: <operator-name>-cluster-token
//	  labels:
//	    app.kubernetes.io/managed-by: <operator-name>
//	    app.kubernetes.io/created-by: token-manager
//	data:
//	  token: <base64>
//
// Example usage:
//
//	tm := trust.NewManager(k8sClient, collectorClient, clusterInfo, trust.Config{
//		OperatorName:      "orc",
//		Namespace:         "orc-system",
//		RegistrationToken: os.Getenv("ORC_REGISTRATION_TOKEN"),
//	})
//	if err := tm.Initialize(ctx); err != nil {
//		os.Exit(1)
//	}
package trust
