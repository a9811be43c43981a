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

package scanner

import (
	"context"
	"fmt"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/Danielkiss9/orc/internal/kube"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const namespaceOrphanReason = "Namespace has no pods, services, deployments, configmaps or secrets"

// protectedNamespaces are never reported, whatever they contain
var protectedNamespaces = map[string]bool{
	"default":         true,
	"kube-system":     true,
	"kube-public":     true,
	"kube-node-lease": true,
}

// +kubebuilder:rbac:groups="",resources=namespaces,verbs=get;list;delete
// +kubebuilder:rbac:groups="",resources=pods;services;configmaps;secrets,verbs=list
// +kubebuilder:rbac:groups=apps,resources=deployments,verbs=list

// NamespaceScanner reports namespaces that contain no workloads or configuration
type NamespaceScanner struct {
	base
}

// NewNamespaceScanner creates a namespace scanner
func NewNamespaceScanner(gateway kube.Gateway) *NamespaceScanner {
	return &NamespaceScanner{base: base{gateway: gateway, kind: "Namespace"}}
}

// Scan lists all namespaces
func (s *NamespaceScanner) Scan(ctx context.Context) ([]client.Object, error) {
	var list corev1.NamespaceList
	if err := s.gateway.List(ctx, &list); err != nil {
		return nil, scanFailure(s.kind, err)
	}
	objs := make([]client.Object, 0, len(list.Items))
	for i := range list.Items {
		objs = append(objs, &list.Items[i])
	}
	return objs, nil
}

// IsOrphaned checks the five content kinds independently. A namespace is
// orphaned only when every one of them is empty.
func (s *NamespaceScanner) IsOrphaned(ctx context.Context, obj client.Object) (orcv1alpha1.OrphanVerdict, error) {
	name := obj.GetName()
	if protectedNamespaces[name] {
		return orcv1alpha1.InUse(), nil
	}

	contents := []struct {
		kind string
		list client.ObjectList
	}{
		{"pods", &corev1.PodList{}},
		{"services", &corev1.ServiceList{}},
		{"deployments", &appsv1.DeploymentList{}},
		{"configmaps", &corev1.ConfigMapList{}},
		{"secrets", &corev1.SecretList{}},
	}

	for _, c := range contents {
		found, err := hasAny(ctx, s.gateway, c.list, client.InNamespace(name))
		if err != nil {
			return orcv1alpha1.OrphanVerdict{}, fmt.Errorf("failed to list %s in namespace %s: %w", c.kind, name, err)
		}
		if found {
			return orcv1alpha1.InUse(), nil
		}
	}

	return orcv1alpha1.Orphaned(namespaceOrphanReason), nil
}

// Cleanup deletes the namespace
func (s *NamespaceScanner) Cleanup(ctx context.Context, obj client.Object) orcv1alpha1.CleanupOutcome {
	return s.deleteObject(ctx, obj)
}
