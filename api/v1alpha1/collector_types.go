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

package v1alpha1

import (
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
)

// ClusterInfo describes the cluster during registration
type ClusterInfo struct {
	Version string `json:"version"`
	Nodes   int    `json:"nodes"`
}

// RegistrationRequest is sent to the collector to exchange a one-time
// registration token for a long-lived cluster token.
type RegistrationRequest struct {
	Token       string      `json:"token"`
	ClusterInfo ClusterInfo `json:"clusterInfo"`
}

// RegistrationResponse carries the issued cluster token
type RegistrationResponse struct {
	Token string `json:"token"`
}

// ReportedResource is the flattened form of an orphaned resource sent to the collector
type ReportedResource struct {
	Kind         string                 `json:"kind"`
	Name         string                 `json:"name"`
	Namespace    string                 `json:"namespace,omitempty"`
	UID          types.UID              `json:"uid"`
	Owner        *metav1.OwnerReference `json:"owner,omitempty"`
	DiscoveredAt time.Time              `json:"discoveredAt"`
	Reason       string                 `json:"reason"`
	Labels       map[string]string      `json:"labels,omitempty"`
	Annotations  map[string]string      `json:"annotations,omitempty"`
}

// OrphanedResourcesPayload is the body of an orphaned-resources report
type OrphanedResourcesPayload struct {
	Timestamp         time.Time          `json:"timestamp"`
	OrphanedResources []ReportedResource `json:"orphanedResources"`
	Summary           Summary            `json:"summary"`
}

// NewOrphanedResourcesPayload flattens an aggregate report into the collector payload
func NewOrphanedResourcesPayload(report *AggregateReport, discoveredAt time.Time) OrphanedResourcesPayload {
	payload := OrphanedResourcesPayload{
		Timestamp:         report.Timestamp,
		OrphanedResources: []ReportedResource{},
		Summary:           report.Summary,
	}
	for _, orphan := range report.Orphans() {
		r := orphan.Resource
		payload.OrphanedResources = append(payload.OrphanedResources, ReportedResource{
			Kind:         r.Kind,
			Name:         r.Name,
			Namespace:    r.Namespace,
			UID:          r.UID,
			Owner:        r.Owner,
			DiscoveredAt: discoveredAt,
			Reason:       orphan.Reason,
			Labels:       r.Labels,
			Annotations:  r.Annotations,
		})
	}
	return payload
}
