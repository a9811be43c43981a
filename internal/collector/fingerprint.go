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

package collector

import (
	"fmt"
	"sort"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the set of reported orphans. Two reports with the same
// orphans and reasons share a fingerprint regardless of order or timestamps,
// which lets the collector recognise unchanged reports.
func Fingerprint(payload orcv1alpha1.OrphanedResourcesPayload) string {
	keys := make([]string, 0, len(payload.OrphanedResources))
	for _, r := range payload.OrphanedResources {
		keys = append(keys, fmt.Sprintf("%s|%s|%s|%s|%s", r.Kind, r.Namespace, r.Name, r.UID, r.Reason))
	}
	sort.Strings(keys)

	h := xxhash.New()
	for _, k := range keys {
		_, _ = h.WriteString(k)
		_, _ = h.WriteString("\n")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
