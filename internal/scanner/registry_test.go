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
	"testing"
)

func TestNewDefaultRegistry_registers_every_kind(t *testing.T) {
	r := NewDefaultRegistry(setupTestClient(t))

	want := []string{"Namespace", "Node", "PodDisruptionBudget", "PersistentVolume", "StorageClass"}
	got := r.Kinds()
	if len(got) != len(want) {
		t.Fatalf("expected %d kinds, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kind %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestRegistry_Select(t *testing.T) {
	r := NewDefaultRegistry(setupTestClient(t))

	tests := []struct {
		name      string
		kinds     []string
		wantKinds []string
		wantErr   bool
	}{
		{
			name:      "empty selection keeps everything",
			wantKinds: r.Kinds(),
		},
		{
			name:      "matches case-insensitively",
			kinds:     []string{"storageclass", "NAMESPACE"},
			wantKinds: []string{"StorageClass", "Namespace"},
		},
		{
			name:    "unknown kind is rejected",
			kinds:   []string{"ConfigMap"},
			wantErr: true,
		},
		{
			name:    "duplicate kind is rejected",
			kinds:   []string{"Node", "node"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected, err := r.Select(tt.kinds)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Select() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got := selected.Kinds()
			if len(got) != len(tt.wantKinds) {
				t.Fatalf("expected %v, got %v", tt.wantKinds, got)
			}
			for i := range got {
				if got[i] != tt.wantKinds[i] {
					t.Errorf("expected %v, got %v", tt.wantKinds, got)
				}
			}
		})
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewDefaultRegistry(setupTestClient(t))

	s, ok := r.Get("persistentvolume")
	if !ok {
		t.Fatal("expected persistentvolume scanner to be registered")
	}
	if _, isCleaner := s.(Cleaner); !isCleaner {
		t.Error("persistent volume scanner should implement Cleaner")
	}
}
