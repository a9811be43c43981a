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
	"sync"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/Danielkiss9/orc/internal/kube"
	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	defaultClassAnnotation     = "storageclass.kubernetes.io/is-default-class"
	betaDefaultClassAnnotation = "storageclass.beta.kubernetes.io/is-default-class"

	storageClassOrphanReason = "Storage class is not default and has no persistent volumes using it"
)

// +kubebuilder:rbac:groups=storage.k8s.io,resources=storageclasses,verbs=get;list;delete
// +kubebuilder:rbac:groups="",resources=persistentvolumes,verbs=list

// StorageClassScanner reports non-default storage classes that no volume uses
type StorageClassScanner struct {
	base

	mu      sync.RWMutex
	indexed bool
	used    map[string]struct{}
}

// NewStorageClassScanner creates a storage class scanner
func NewStorageClassScanner(gateway kube.Gateway) *StorageClassScanner {
	return &StorageClassScanner{base: base{gateway: gateway, kind: "StorageClass"}}
}

// PreScan collects the storage class name of every persistent volume
func (s *StorageClassScanner) PreScan(ctx context.Context) error {
	var pvs corev1.PersistentVolumeList
	if err := s.gateway.List(ctx, &pvs); err != nil {
		return scanFailure("PersistentVolume", err)
	}

	used := make(map[string]struct{}, len(pvs.Items))
	for i := range pvs.Items {
		if name := pvs.Items[i].Spec.StorageClassName; name != "" {
			used[name] = struct{}{}
		}
	}

	s.mu.Lock()
	s.used = used
	s.indexed = true
	s.mu.Unlock()
	return nil
}

// Reset drops the storage class usage index
func (s *StorageClassScanner) Reset() {
	s.mu.Lock()
	s.used = nil
	s.indexed = false
	s.mu.Unlock()
}

// Scan lists all storage classes
func (s *StorageClassScanner) Scan(ctx context.Context) ([]client.Object, error) {
	var list storagev1.StorageClassList
	if err := s.gateway.List(ctx, &list); err != nil {
		return nil, scanFailure(s.kind, err)
	}
	objs := make([]client.Object, 0, len(list.Items))
	for i := range list.Items {
		objs = append(objs, &list.Items[i])
	}
	return objs, nil
}

// IsOrphaned reports the class unless it is the cluster default or referenced by a volume
func (s *StorageClassScanner) IsOrphaned(_ context.Context, obj client.Object) (orcv1alpha1.OrphanVerdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.indexed {
		return orcv1alpha1.OrphanVerdict{}, fmt.Errorf("storage class %s evaluated before the volume index was built", obj.GetName())
	}

	if isDefaultStorageClass(obj) {
		return orcv1alpha1.InUse(), nil
	}
	if _, ok := s.used[obj.GetName()]; ok {
		return orcv1alpha1.InUse(), nil
	}
	return orcv1alpha1.Orphaned(storageClassOrphanReason), nil
}

// Cleanup deletes the storage class
func (s *StorageClassScanner) Cleanup(ctx context.Context, obj client.Object) orcv1alpha1.CleanupOutcome {
	return s.deleteObject(ctx, obj)
}

func isDefaultStorageClass(obj client.Object) bool {
	annotations := obj.GetAnnotations()
	return annotations[defaultClassAnnotation] == "true" || annotations[betaDefaultClassAnnotation] == "true"
}
