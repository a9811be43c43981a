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

package kube

import (
	"context"
	"fmt"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/version"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Gateway is the cluster access used by scanners: typed reads plus delete
type Gateway interface {
	client.Reader
	Delete(ctx context.Context, obj client.Object, opts ...client.DeleteOption) error
}

// SecretStore persists the cluster credential
type SecretStore interface {
	Get(ctx context.Context, key client.ObjectKey, obj client.Object, opts ...client.GetOption) error
	Create(ctx context.Context, obj client.Object, opts ...client.CreateOption) error
}

// VersionSource reports the API server version. It is satisfied by
// discovery.DiscoveryInterface.
type VersionSource interface {
	ServerVersion() (*version.Info, error)
}

// NewClient creates an uncached client. The trust bootstrap and one-off scans
// run before (or without) a manager, so they cannot rely on informer caches.
func NewClient(cfg *rest.Config, scheme *runtime.Scheme) (client.Client, error) {
	c, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return c, nil
}

// LookupClusterInfo gathers the version and node count sent with a registration request
func LookupClusterInfo(ctx context.Context, reader client.Reader, versions VersionSource) (orcv1alpha1.ClusterInfo, error) {
	info, err := versions.ServerVersion()
	if err != nil {
		return orcv1alpha1.ClusterInfo{}, fmt.Errorf("failed to get server version: %w", err)
	}

	var nodes corev1.NodeList
	if err := reader.List(ctx, &nodes); err != nil {
		return orcv1alpha1.ClusterInfo{}, fmt.Errorf("failed to list nodes: %w", err)
	}

	return orcv1alpha1.ClusterInfo{
		Version: info.GitVersion,
		Nodes:   len(nodes.Items),
	}, nil
}
