// Copyright 2026 The mltrack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestCollector_RecordCall(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	c, err := NewCollector(mp)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	ctx := context.Background()
	c.RecordCall(ctx, "log_metric", OutcomeOK, 0.05)
	c.RecordCall(ctx, "log_metric", OutcomeSwallowed, 0.10)
	c.RecordCall(ctx, "set_tag", OutcomeSkipped, 0)
	c.RecordSwallowed(ctx, "log_metric")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true

			if m.Name == "mltrack_calls_total" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok {
					t.Fatalf("unexpected data type for calls counter: %T", m.Data)
				}
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				if total != 3 {
					t.Errorf("calls total = %d, want 3", total)
				}
			}
		}
	}

	for _, name := range []string{"mltrack_calls_total", "mltrack_swallowed_errors_total", "mltrack_call_duration_seconds"} {
		if !found[name] {
			t.Errorf("metric %s not collected", name)
		}
	}
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	// Must not panic.
	c.RecordCall(context.Background(), "set_tag", OutcomeOK, 0.01)
	c.RecordSwallowed(context.Background(), "set_tag")
}
