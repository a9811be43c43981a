//go:build e2e
// +build e2e

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

package e2e

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/Danielkiss9/orc/test/utils"
)

const (
	unboundVolume  = "orc-e2e-unbound"
	ignoredVolume  = "orc-e2e-ignored"
	tokenNamespace = "orc-system"
)

// trustManifest stores a cluster token so scans start without registering
const trustManifest = `
apiVersion: v1
kind: Namespace
metadata:
  name: orc-system
---
apiVersion: v1
kind: Secret
metadata:
  name: orc-cluster-token
  namespace: orc-system
type: Opaque
stringData:
  token: orc-e2e-token
`

const volumesManifest = `
apiVersion: v1
kind: PersistentVolume
metadata:
  name: orc-e2e-unbound
spec:
  capacity:
    storage: 1Gi
  accessModes: ["ReadWriteOnce"]
  persistentVolumeReclaimPolicy: Retain
  hostPath:
    path: /tmp/orc-e2e-unbound
---
apiVersion: v1
kind: PersistentVolume
metadata:
  name: orc-e2e-ignored
  annotations:
    orc/ignore-resource: "true"
spec:
  capacity:
    storage: 1Gi
  accessModes: ["ReadWriteOnce"]
  persistentVolumeReclaimPolicy: Retain
  hostPath:
    path: /tmp/orc-e2e-ignored
`

func findRef(refs []orcv1alpha1.ResourceRef, name string) bool {
	for _, r := range refs {
		if r.Name == name {
			return true
		}
	}
	return false
}

var _ = Describe("orc scan", Ordered, func() {
	var configPath string

	BeforeAll(func() {
		By("writing a config without an age threshold")
		configPath = filepath.Join(GinkgoT().TempDir(), "orc.yaml")
		Expect(os.WriteFile(configPath, []byte("ageThresholdDays: 0\n"), 0o600)).To(Succeed())

		By("storing a cluster token")
		Expect(utils.KubectlApply(trustManifest)).To(Succeed())

		By("creating persistent volumes without claims")
		Expect(utils.KubectlApply(volumesManifest)).To(Succeed())
	})

	AfterAll(func() {
		utils.KubectlDelete("pv", unboundVolume, ignoredVolume)
		utils.KubectlDelete("namespace", tokenNamespace)
	})

	It("reports unbound volumes without deleting them in dry-run", func() {
		output, err := utils.RunOrc("scan", "--once", "--config", configPath,
			"--scanners", "PersistentVolume", "-o", "json")
		Expect(err).NotTo(HaveOccurred())

		var report orcv1alpha1.AggregateReport
		Expect(json.Unmarshal([]byte(output), &report)).To(Succeed())
		Expect(report.Reports).To(HaveLen(1))

		pvs := report.Reports[0]
		Expect(pvs.ResourceType).To(Equal("PersistentVolume"))

		var orphaned []orcv1alpha1.ResourceRef
		for _, o := range pvs.OrphanedResources {
			orphaned = append(orphaned, o.Resource)
		}
		Expect(findRef(orphaned, unboundVolume)).To(BeTrue())
		Expect(findRef(orphaned, ignoredVolume)).To(BeFalse())
		Expect(findRef(pvs.SkippedResources, ignoredVolume)).To(BeTrue())

		By("checking the volume still exists")
		_, err = utils.Kubectl("get", "pv", unboundVolume)
		Expect(err).NotTo(HaveOccurred())
	})

	It("deletes unbound volumes when dry-run is off", func() {
		_, err := utils.RunOrc("scan", "--once", "--config", configPath,
			"--scanners", "PersistentVolume", "--dry-run=false", "-o", "json")
		Expect(err).NotTo(HaveOccurred())

		Eventually(func(g Gomega) {
			out, err := utils.Kubectl("get", "pv", unboundVolume, "--ignore-not-found", "-o", "name")
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(utils.GetNonEmptyLines(out)).To(BeEmpty())
		}).WithTimeout(time.Minute).WithPolling(time.Second).Should(Succeed())

		By("checking the ignored volume survives")
		_, err = utils.Kubectl("get", "pv", ignoredVolume)
		Expect(err).NotTo(HaveOccurred())
	})
})
