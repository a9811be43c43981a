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
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	nodeEmptyReason         = "Node has no pods scheduled on it"
	nodeDaemonSetOnlyReason = "Node is not used by any workloads, except DaemonSets"
)

// +kubebuilder:rbac:groups="",resources=nodes,verbs=get;list
// +kubebuilder:rbac:groups="",resources=pods,verbs=list

// nodeUsage counts the pods bound to a node
type nodeUsage struct {
	pods      int
	workloads int
}

// NodeScanner reports nodes that run nothing, or nothing but DaemonSet pods.
// Nodes are never deleted; removing capacity is left to the cluster autoscaler
// or an operator.
type NodeScanner struct {
	base

	mu      sync.RWMutex
	indexed bool
	usage   map[string]nodeUsage
}

// NewNodeScanner creates a node scanner
func NewNodeScanner(gateway kube.Gateway) *NodeScanner {
	return &NodeScanner{base: base{gateway: gateway, kind: "Node"}}
}

// PreScan builds the per-node pod usage index from a single pod listing.
// Unscheduled pods are ignored. Pods without owner references count as workloads.
func (s *NodeScanner) PreScan(ctx context.Context) error {
	var pods corev1.PodList
	if err := s.gateway.List(ctx, &pods); err != nil {
		return scanFailure("Pod", err)
	}

	usage := make(map[string]nodeUsage)
	for i := range pods.Items {
		pod := &pods.Items[i]
		if pod.Spec.NodeName == "" {
			continue
		}
		u := usage[pod.Spec.NodeName]
		u.pods++
		if !ownedOnlyByDaemonSets(pod) {
			u.workloads++
		}
		usage[pod.Spec.NodeName] = u
	}

	s.mu.Lock()
	s.usage = usage
	s.indexed = true
	s.mu.Unlock()
	return nil
}

// Reset drops the pod index
func (s *NodeScanner) Reset() {
	s.mu.Lock()
	s.usage = nil
	s.indexed = false
	s.mu.Unlock()
}

// Scan lists all nodes
func (s *NodeScanner) Scan(ctx context.Context) ([]client.Object, error) {
	var list corev1.NodeList
	if err := s.gateway.List(ctx, &list); err != nil {
		return nil, scanFailure(s.kind, err)
	}
	objs := make([]client.Object, 0, len(list.Items))
	for i := range list.Items {
		objs = append(objs, &list.Items[i])
	}
	return objs, nil
}

// IsOrphaned checks the node against the index built by PreScan
func (s *NodeScanner) IsOrphaned(_ context.Context, obj client.Object) (orcv1alpha1.OrphanVerdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.indexed {
		return orcv1alpha1.OrphanVerdict{}, fmt.Errorf("node %s evaluated before the pod index was built", obj.GetName())
	}

	u := s.usage[obj.GetName()]
	if u.pods == 0 {
		return orcv1alpha1.Orphaned(nodeEmptyReason), nil
	}
	if u.workloads == 0 {
		return orcv1alpha1.Orphaned(nodeDaemonSetOnlyReason), nil
	}
	return orcv1alpha1.InUse(), nil
}

// ownedOnlyByDaemonSets reports whether every owner of the pod is a DaemonSet
func ownedOnlyByDaemonSets(pod *corev1.Pod) bool {
	owners := pod.GetOwnerReferences()
	if len(owners) == 0 {
		return false
	}
	for _, owner := range owners {
		if owner.Kind != "DaemonSet" {
			return false
		}
	}
	return true
}
