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
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// +kubebuilder:rbac:groups="",resources=persistentvolumes,verbs=get;list;delete

// PersistentVolumeScanner reports volumes that are not bound to a claim
type PersistentVolumeScanner struct {
	base
}

// NewPersistentVolumeScanner creates a persistent volume scanner
func NewPersistentVolumeScanner(gateway kube.Gateway) *PersistentVolumeScanner {
	return &PersistentVolumeScanner{base: base{gateway: gateway, kind: "PersistentVolume"}}
}

// Scan lists all persistent volumes
func (s *PersistentVolumeScanner) Scan(ctx context.Context) ([]client.Object, error) {
	var list corev1.PersistentVolumeList
	if err := s.gateway.List(ctx, &list); err != nil {
		return nil, scanFailure(s.kind, err)
	}
	objs := make([]client.Object, 0, len(list.Items))
	for i := range list.Items {
		objs = append(objs, &list.Items[i])
	}
	return objs, nil
}

// IsOrphaned reports every phase other than Bound as orphaned
func (s *PersistentVolumeScanner) IsOrphaned(_ context.Context, obj client.Object) (orcv1alpha1.OrphanVerdict, error) {
	pv, ok := obj.(*corev1.PersistentVolume)
	if !ok {
		return orcv1alpha1.OrphanVerdict{}, fmt.Errorf("expected PersistentVolume, got %T", obj)
	}
	if pv.Status.Phase == corev1.VolumeBound {
		return orcv1alpha1.InUse(), nil
	}
	phase := pv.Status.Phase
	if phase == "" {
		phase = "Unknown"
	}
	return orcv1alpha1.Orphaned(fmt.Sprintf("Persistent volume is in phase %s and not bound to any claim", phase)), nil
}

// Cleanup deletes the persistent volume
func (s *PersistentVolumeScanner) Cleanup(ctx context.Context, obj client.Object) orcv1alpha1.CleanupOutcome {
	return s.deleteObject(ctx, obj)
}
