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
	"errors"
	"fmt"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/Danielkiss9/orc/internal/kube"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ErrScanFailure wraps every failure to enumerate or index a resource kind
var ErrScanFailure = errors.New("scan failed")

// Scanner detects orphaned resources of a single kind
type Scanner interface {
	// Kind returns the resource type handled by the scanner, e.g. "Namespace"
	Kind() string
	// Scan lists every resource of the kind. Failures wrap ErrScanFailure.
	Scan(ctx context.Context) ([]client.Object, error)
	// ShouldProcess is a cheap pre-filter; false marks the resource as skipped
	ShouldProcess(obj client.Object) bool
	// IsOrphaned classifies one resource. Orphaned verdicts always carry a reason.
	IsOrphaned(ctx context.Context, obj client.Object) (orcv1alpha1.OrphanVerdict, error)
}

// PreScanner is implemented by scanners that index cross-resource references
// before classification. Reset drops the index once the cycle is done.
type PreScanner interface {
	PreScan(ctx context.Context) error
	Reset()
}

// Cleaner is implemented by scanners whose orphans may be deleted.
// Cleanup reports failures in the outcome instead of returning an error.
type Cleaner interface {
	Cleanup(ctx context.Context, obj client.Object) orcv1alpha1.CleanupOutcome
}

// base carries the gateway and the default pre-filter shared by all scanners
type base struct {
	gateway kube.Gateway
	kind    string
}

func (b *base) Kind() string {
	return b.kind
}

// ShouldProcess skips objects that are already being deleted
func (b *base) ShouldProcess(obj client.Object) bool {
	return obj.GetDeletionTimestamp() == nil
}

// deleteObject removes obj and converts the result into a cleanup outcome.
// An object that is already gone counts as cleaned up.
func (b *base) deleteObject(ctx context.Context, obj client.Object) orcv1alpha1.CleanupOutcome {
	ref := orcv1alpha1.NewResourceRef(b.kind, obj)
	if err := b.gateway.Delete(ctx, obj); err != nil {
		if apierrors.IsNotFound(err) {
			return orcv1alpha1.CleanupSucceeded(ref)
		}
		return orcv1alpha1.CleanupFailed(ref, fmt.Errorf("failed to delete %s: %w", ref.QualifiedName(), err))
	}
	return orcv1alpha1.CleanupSucceeded(ref)
}

func scanFailure(kind string, err error) error {
	return fmt.Errorf("%w: failed to list %s resources: %w", ErrScanFailure, kind, err)
}

// hasAny reports whether a list call returns at least one item
func hasAny(ctx context.Context, reader client.Reader, list client.ObjectList, opts ...client.ListOption) (bool, error) {
	if err := reader.List(ctx, list, opts...); err != nil {
		return false, err
	}
	return meta.LenList(list) > 0, nil
}
