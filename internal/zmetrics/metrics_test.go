// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

package zmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterSucceedsOnFreshRegistry(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestRegisterTwiceOnSameMetricsFails(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Fatal("registering the same collectors twice should fail")
	}
}

func TestCountersAndGaugeAreUsable(t *testing.T) {
	m := New()
	m.AsofSidecarFallbacks.Inc()
	m.AsofNullResults.Add(3)
	m.OpenPartitions.Set(5)
	m.OpenPartitions.Sub(2)
	m.IngestRows.Observe(100)
	m.PublishSeconds.Observe(0.01)
	m.AsofProbeSeconds.Observe(0.002)
}
