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

package cleanup

import (
	"context"
	"errors"
	"fmt"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Sink receives the report of every completed cycle
type Sink interface {
	// Name identifies the sink in logs
	Name() string
	// Publish delivers the report
	Publish(ctx context.Context, report *orcv1alpha1.AggregateReport) error
}

// MultiSink fans out to multiple sinks
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a sink that publishes to every given sink
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Name identifies the fan-out sink
func (m *MultiSink) Name() string {
	return "multi"
}

// Len returns the number of sinks
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// Publish sends to all sinks, even after a failure, and joins the errors
func (m *MultiSink) Publish(ctx context.Context, report *orcv1alpha1.AggregateReport) error {
	logger := log.FromContext(ctx)

	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, report); err != nil {
			logger.Error(err, "Failed to publish report", "sink", s.Name())
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
