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

// Package httpclient provides a unified HTTP client factory with consistent
// timeout and observability behavior for talking to the tracking backend.
//
// The client factory composes transport layers to provide:
//   - Request logging with sanitized URLs (sensitive params redacted)
//   - User-Agent header injection
//   - Request ID propagation for correlating with backend logs
//   - TLS 1.2+ with secure defaults
//   - Connection pooling for performance
//
// Every call is a single attempt. The adapter's error model treats a failed
// tracking call as logged-and-abandoned, so no retry layer is composed here.
//
// Example usage:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.UserAgent = "mltrack/1.0"
//	client, err := httpclient.New(cfg)
//	if err != nil {
//	    return err
//	}
//
//	resp, err := client.Get("https://mlflow.example.com/api/2.0/mlflow/experiments/get-by-name?experiment_name=Default")
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// New creates a new HTTP client with the given configuration.
// The client includes:
//   - Request logging with sanitized URLs
//   - User-Agent header injection
//   - Request ID injection
//   - TLS 1.2 minimum, TLS 1.3 preferred
//   - Connection pooling with sensible defaults
//
// Returns an error if the configuration is invalid.
func New(cfg Config) (*http.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseTransport := &http.Transport{
		// TLS configuration: 1.2 minimum, 1.3 preferred
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
		},

		// Connection pooling settings
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,

		// Timeouts
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	// Logging transport: logs requests, sets User-Agent, injects request ID
	transport := newLoggingTransport(baseTransport, cfg.UserAgent)

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}
