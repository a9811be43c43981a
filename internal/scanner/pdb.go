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
	"encoding/json"
	"fmt"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/Danielkiss9/orc/internal/kube"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const pdbNoSelectorReason = "No pods found in namespace without label selector"

// +kubebuilder:rbac:groups=policy,resources=poddisruptionbudgets,verbs=get;list;delete
// +kubebuilder:rbac:groups="",resources=pods,verbs=list
// +kubebuilder:rbac:groups=apps,resources=deployments;statefulsets,verbs=list

// PDBScanner reports PodDisruptionBudgets whose selector matches nothing
type PDBScanner struct {
	base
}

// NewPDBScanner creates a PodDisruptionBudget scanner
func NewPDBScanner(gateway kube.Gateway) *PDBScanner {
	return &PDBScanner{base: base{gateway: gateway, kind: "PodDisruptionBudget"}}
}

// Scan lists PodDisruptionBudgets in all namespaces
func (s *PDBScanner) Scan(ctx context.Context) ([]client.Object, error) {
	var list policyv1.PodDisruptionBudgetList
	if err := s.gateway.List(ctx, &list); err != nil {
		return nil, scanFailure(s.kind, err)
	}
	objs := make([]client.Object, 0, len(list.Items))
	for i := range list.Items {
		objs = append(objs, &list.Items[i])
	}
	return objs, nil
}

// IsOrphaned matches the selector's matchLabels against pods, deployments and
// statefulsets in the budget's namespace. Without matchLabels the budget is
// judged by whether the namespace has any pods at all.
func (s *PDBScanner) IsOrphaned(ctx context.Context, obj client.Object) (orcv1alpha1.OrphanVerdict, error) {
	pdb, ok := obj.(*policyv1.PodDisruptionBudget)
	if !ok {
		return orcv1alpha1.OrphanVerdict{}, fmt.Errorf("expected PodDisruptionBudget, got %T", obj)
	}
	namespace := pdb.GetNamespace()

	if pdb.Spec.Selector == nil || len(pdb.Spec.Selector.MatchLabels) == 0 {
		found, err := hasAny(ctx, s.gateway, &corev1.PodList{}, client.InNamespace(namespace))
		if err != nil {
			return orcv1alpha1.OrphanVerdict{}, fmt.Errorf("failed to list pods in namespace %s: %w", namespace, err)
		}
		if found {
			return orcv1alpha1.InUse(), nil
		}
		return orcv1alpha1.Orphaned(pdbNoSelectorReason), nil
	}

	matchLabels := pdb.Spec.Selector.MatchLabels
	targets := []struct {
		kind string
		list client.ObjectList
	}{
		{"pods", &corev1.PodList{}},
		{"deployments", &appsv1.DeploymentList{}},
		{"statefulsets", &appsv1.StatefulSetList{}},
	}
	for _, t := range targets {
		found, err := hasAny(ctx, s.gateway, t.list, client.InNamespace(namespace), client.MatchingLabels(matchLabels))
		if err != nil {
			return orcv1alpha1.OrphanVerdict{}, fmt.Errorf("failed to list %s in namespace %s: %w", t.kind, namespace, err)
		}
		if found {
			return orcv1alpha1.InUse(), nil
		}
	}

	encoded, err := json.Marshal(matchLabels)
	if err != nil {
		return orcv1alpha1.OrphanVerdict{}, fmt.Errorf("failed to encode selector labels: %w", err)
	}
	return orcv1alpha1.Orphaned(fmt.Sprintf("No matching resources found for labels: %s", encoded)), nil
}

// Cleanup deletes the PodDisruptionBudget
func (s *PDBScanner) Cleanup(ctx context.Context, obj client.Object) orcv1alpha1.CleanupOutcome {
	return s.deleteObject(ctx, obj)
}
