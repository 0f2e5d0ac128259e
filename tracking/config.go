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

package tracking

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mltrack/mltrack/internal/config"
	"github.com/mltrack/mltrack/internal/telemetry"
)

// Config carries explicit tracking settings. Every field is optional;
// zero values fall back to the environment and the settings file, so
// callers that are happy with ambient configuration pass nothing at all.
type Config struct {
	// TrackingURI is the MLflow server base URL. Overrides
	// MLFLOW_TRACKING_URI and the settings file.
	TrackingURI string

	// ExperimentID selects the experiment new runs are created in.
	// Takes precedence over ExperimentName.
	ExperimentID string

	// ExperimentName selects (or creates) the experiment by name when
	// ExperimentID is unset.
	ExperimentName string

	// RunID pins all calls to an existing run. When set, the Tracker
	// never creates a run of its own.
	RunID string

	// Token is a bearer token for the tracking server.
	Token string

	// Username and Password enable basic auth when Token is unset.
	Username string
	Password string

	// RequestTimeout bounds each backend call. Zero means the default.
	RequestTimeout time.Duration
}

type options struct {
	cfg          Config
	hasCfg       bool
	logger       *slog.Logger
	httpClient   *http.Client
	collector    *telemetry.Collector
	settingsPath string
}

// Option customizes a Tracker at construction.
type Option func(*options)

// WithConfig supplies explicit settings that take precedence over the
// environment and the settings file.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
		o.hasCfg = true
	}
}

// WithLogger replaces the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client used for backend and artifact
// calls. Mostly useful in tests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithCollector wires the Tracker's self-metrics into an existing
// telemetry collector.
func WithCollector(c *telemetry.Collector) Option {
	return func(o *options) {
		o.collector = c
	}
}

// WithSettingsPath reads settings from the given file instead of the
// default XDG location.
func WithSettingsPath(path string) Option {
	return func(o *options) {
		o.settingsPath = path
	}
}

// merge overlays explicit Config fields onto resolved settings.
func (c Config) merge(s config.Settings) config.Settings {
	if c.TrackingURI != "" {
		s.TrackingURI = c.TrackingURI
	}
	if c.ExperimentID != "" {
		s.ExperimentID = c.ExperimentID
	}
	if c.ExperimentName != "" {
		s.ExperimentName = c.ExperimentName
	}
	if c.RunID != "" {
		s.RunID = c.RunID
	}
	if c.Token != "" {
		s.Auth.Token = c.Token
	}
	if c.Username != "" {
		s.Auth.Username = c.Username
		s.Auth.Password = c.Password
	}
	if c.RequestTimeout > 0 {
		s.RequestTimeout = c.RequestTimeout
	}
	return s
}
