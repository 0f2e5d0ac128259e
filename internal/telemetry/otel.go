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

// Package telemetry instruments the adapter itself: how many tracking
// calls it made, how many failures it swallowed, and how long backend
// round-trips took. Metrics are exposed via a Prometheus handler; spans
// are exported over OTLP when an endpoint is configured.
//
// Setup is entirely optional. When no Provider is created, the adapter's
// instrumentation hooks resolve to OpenTelemetry's global no-op providers
// and cost nothing.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Environment variables for optional span export.
const (
	EnvOTLPEndpoint = "MLTRACK_OTLP_ENDPOINT"
	EnvOTLPProtocol = "MLTRACK_OTLP_PROTOCOL" // "http" (default) or "grpc"
	EnvTraceStdout  = "MLTRACK_TRACE_STDOUT"  // "1" to dump spans to stderr
)

// Config configures the telemetry provider.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// OTLPEndpoint enables span export when non-empty (host:port).
	OTLPEndpoint string

	// OTLPProtocol selects the exporter transport: "http" or "grpc".
	OTLPProtocol string

	// StdoutTrace dumps spans to stderr, for local debugging.
	StdoutTrace bool
}

// FromEnv builds a Config from environment variables.
func FromEnv(serviceName, serviceVersion string) Config {
	return Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		OTLPEndpoint:   os.Getenv(EnvOTLPEndpoint),
		OTLPProtocol:   strings.ToLower(os.Getenv(EnvOTLPProtocol)),
		StdoutTrace:    os.Getenv(EnvTraceStdout) == "1",
	}
}

// Provider wraps the OpenTelemetry SDK: a meter provider backed by a
// Prometheus exporter, and a tracer provider with optional OTLP export.
type Provider struct {
	tp           *sdktrace.TracerProvider
	mp           *sdkmetric.MeterProvider
	promExporter *prometheus.Exporter
	collector    *Collector
}

// NewProvider creates and installs a telemetry provider as the process
// global, so the adapter's instrumentation hooks pick it up.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"", // Empty schema URL to avoid merge conflicts
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if cfg.OTLPEndpoint != "" {
		exporter, err := newOTLPExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter))
	}

	if cfg.StdoutTrace {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(traceOpts...)
	otel.SetTracerProvider(tp)

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	)
	otel.SetMeterProvider(mp)

	collector, err := NewCollector(mp)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics collector: %w", err)
	}

	return &Provider{
		tp:           tp,
		mp:           mp,
		promExporter: promExporter,
		collector:    collector,
	}, nil
}

// newOTLPExporter builds the span exporter for the configured protocol.
func newOTLPExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.OTLPProtocol {
	case "grpc":
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp grpc exporter: %w", err)
		}
		return exporter, nil
	case "http", "":
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp http exporter: %w", err)
		}
		return exporter, nil
	default:
		return nil, fmt.Errorf("unknown OTLP protocol %q", cfg.OTLPProtocol)
	}
}

// Collector returns the adapter metrics collector.
func (p *Provider) Collector() *Collector {
	return p.collector
}

// Handler returns an HTTP handler serving the Prometheus metrics.
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

// Shutdown flushes pending spans and metrics and releases resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.tp.Shutdown(ctx); err != nil {
		return err
	}
	return p.mp.Shutdown(ctx)
}

// ForceFlush exports all pending telemetry synchronously.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if err := p.tp.ForceFlush(ctx); err != nil {
		return err
	}
	return p.mp.ForceFlush(ctx)
}
