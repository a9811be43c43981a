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
	"fmt"
	"strings"

	"github.com/Danielkiss9/orc/internal/kube"
)

// Registry is the ordered set of enabled scanners, keyed by kind
type Registry struct {
	scanners []Scanner
	byKind   map[string]Scanner
}

// NewRegistry creates a registry from the given scanners. Kinds must be unique.
func NewRegistry(scanners ...Scanner) (*Registry, error) {
	r := &Registry{byKind: make(map[string]Scanner, len(scanners))}
	for _, s := range scanners {
		key := strings.ToLower(s.Kind())
		if _, exists := r.byKind[key]; exists {
			return nil, fmt.Errorf("duplicate scanner for kind %q", s.Kind())
		}
		r.byKind[key] = s
		r.scanners = append(r.scanners, s)
	}
	return r, nil
}

// NewDefaultRegistry registers every built-in scanner against the gateway
func NewDefaultRegistry(gateway kube.Gateway) *Registry {
	r, _ := NewRegistry(
		NewNamespaceScanner(gateway),
		NewNodeScanner(gateway),
		NewPDBScanner(gateway),
		NewPersistentVolumeScanner(gateway),
		NewStorageClassScanner(gateway),
	)
	return r
}

// Scanners returns the scanners in registration order
func (r *Registry) Scanners() []Scanner {
	out := make([]Scanner, len(r.scanners))
	copy(out, r.scanners)
	return out
}

// Kinds returns the registered kinds in registration order
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.scanners))
	for _, s := range r.scanners {
		kinds = append(kinds, s.Kind())
	}
	return kinds
}

// Get returns the scanner for kind, matched case-insensitively
func (r *Registry) Get(kind string) (Scanner, bool) {
	s, ok := r.byKind[strings.ToLower(kind)]
	return s, ok
}

// Select returns a registry restricted to the given kinds. An empty selection
// keeps every scanner.
func (r *Registry) Select(kinds []string) (*Registry, error) {
	if len(kinds) == 0 {
		return r, nil
	}
	selected := make([]Scanner, 0, len(kinds))
	for _, kind := range kinds {
		s, ok := r.Get(kind)
		if !ok {
			return nil, fmt.Errorf("unknown scanner kind %q (available: %s)", kind, strings.Join(r.Kinds(), ", "))
		}
		selected = append(selected, s)
	}
	return NewRegistry(selected...)
}
