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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Call outcomes recorded on the calls counter.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeSkipped   = "skipped"
	OutcomeSwallowed = "swallowed"
)

// Collector records adapter-level metrics. A nil *Collector is valid and
// records nothing, so call sites never need to branch.
type Collector struct {
	callsTotal     metric.Int64Counter
	swallowedTotal metric.Int64Counter
	callDuration   metric.Float64Histogram
}

// NewCollector creates a metrics collector on the given meter provider.
func NewCollector(meterProvider metric.MeterProvider) (*Collector, error) {
	meter := meterProvider.Meter("mltrack")

	c := &Collector{}

	var err error

	c.callsTotal, err = meter.Int64Counter(
		"mltrack_calls_total",
		metric.WithDescription("Total number of tracking calls by operation and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	c.swallowedTotal, err = meter.Int64Counter(
		"mltrack_swallowed_errors_total",
		metric.WithDescription("Total number of backend errors swallowed by the adapter"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	c.callDuration, err = meter.Float64Histogram(
		"mltrack_call_duration_seconds",
		metric.WithDescription("Duration of tracking backend round-trips"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// RecordCall records one tracking call with its outcome and duration.
func (c *Collector) RecordCall(ctx context.Context, op, outcome string, seconds float64) {
	if c == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	)
	c.callsTotal.Add(ctx, 1, attrs)

	if outcome != OutcomeSkipped {
		c.callDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("op", op)))
	}
}

// RecordSwallowed records one backend error that was logged and dropped.
func (c *Collector) RecordSwallowed(ctx context.Context, op string) {
	if c == nil {
		return
	}
	c.swallowedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
