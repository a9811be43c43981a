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

package orchestrator

import (
	"context"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/Danielkiss9/orc/internal/scanner"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
)

var _ = Describe("Orchestrator with the built-in scanners", func() {
	var k8sClient client.Client

	BeforeEach(func() {
		scheme := runtime.NewScheme()
		Expect(clientgoscheme.AddToScheme(scheme)).To(Succeed())

		k8sClient = fake.NewClientBuilder().
			WithScheme(scheme).
			WithObjects(
				&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "kube-system"}},
				&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "stale"}},
				&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "apps"}},
				&corev1.Pod{
					ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "apps"},
					Spec:       corev1.PodSpec{NodeName: "node-a"},
				},
				&corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: "node-a"}},
				&corev1.Node{ObjectMeta: metav1.ObjectMeta{Name: "node-b"}},
				&storagev1.StorageClass{ObjectMeta: metav1.ObjectMeta{Name: "unused"}, Provisioner: "example.com/csi"},
				&corev1.PersistentVolume{
					ObjectMeta: metav1.ObjectMeta{Name: "pv-released"},
					Status:     corev1.PersistentVolumeStatus{Phase: corev1.VolumeReleased},
				},
			).
			Build()
	})

	policy := func(dryRun bool) orcv1alpha1.ScanPolicy {
		p := orcv1alpha1.DefaultScanPolicy()
		p.DryRun = dryRun
		p.AgeThresholdDays = 0
		return p
	}

	It("finds orphans of every kind in dry-run mode without deleting", func() {
		o, err := New(scanner.NewDefaultRegistry(k8sClient), policy(true))
		Expect(err).NotTo(HaveOccurred())

		agg, err := o.RunCycle(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(agg.Summary.TotalErrors).To(BeZero())
		Expect(agg.Summary.TotalOrphaned).To(Equal(4))
		Expect(reportFor(agg, "Namespace").OrphanedResources).To(ConsistOf(
			HaveField("Resource.Name", "stale"),
		))
		Expect(reportFor(agg, "Node").OrphanedResources).To(ConsistOf(
			HaveField("Resource.Name", "node-b"),
		))
		Expect(reportFor(agg, "StorageClass").OrphanedResources).To(HaveLen(1))
		Expect(reportFor(agg, "PersistentVolume").OrphanedResources).To(HaveLen(1))

		Expect(k8sClient.Get(context.Background(), client.ObjectKey{Name: "stale"}, &corev1.Namespace{})).To(Succeed())
	})

	It("deletes orphans in execute mode but leaves nodes alone", func() {
		o, err := New(scanner.NewDefaultRegistry(k8sClient), policy(false))
		Expect(err).NotTo(HaveOccurred())

		agg, err := o.RunCycle(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(agg.Outcome()).To(Equal(orcv1alpha1.OutcomeSuccess))

		Expect(k8sClient.Get(context.Background(), client.ObjectKey{Name: "stale"}, &corev1.Namespace{})).NotTo(Succeed())
		Expect(k8sClient.Get(context.Background(), client.ObjectKey{Name: "pv-released"}, &corev1.PersistentVolume{})).NotTo(Succeed())
		Expect(k8sClient.Get(context.Background(), client.ObjectKey{Name: "unused"}, &storagev1.StorageClass{})).NotTo(Succeed())
		Expect(k8sClient.Get(context.Background(), client.ObjectKey{Name: "node-b"}, &corev1.Node{})).To(Succeed())
		Expect(k8sClient.Get(context.Background(), client.ObjectKey{Name: "apps"}, &corev1.Namespace{})).To(Succeed())
	})
})
