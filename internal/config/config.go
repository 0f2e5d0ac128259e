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

// Package config resolves the tracking adapter configuration from a YAML
// settings file and MLflow-compatible environment variables. Environment
// values override file values; file values override defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	pkgerrors "github.com/mltrack/mltrack/pkg/errors"
)

// Environment variables understood by the adapter. The MLFLOW_* names
// match what the MLflow client and tracking server already use, so a job
// configured for the Python client works unchanged.
const (
	// EnvDisable force-disables tracking when set to the literal "False".
	// Any other value, including unset, defers to auto-detection.
	EnvDisable = "TF_YARN_USE_MLFLOW"

	EnvTrackingURI    = "MLFLOW_TRACKING_URI"
	EnvExperimentID   = "MLFLOW_EXPERIMENT_ID"
	EnvExperimentName = "MLFLOW_EXPERIMENT_NAME"
	EnvRunID          = "MLFLOW_RUN_ID"
	EnvToken          = "MLFLOW_TRACKING_TOKEN"
	EnvUsername       = "MLFLOW_TRACKING_USERNAME"
	EnvPassword       = "MLFLOW_TRACKING_PASSWORD"
)

// disableSentinel is the exact string that force-disables tracking.
// Matching is deliberately case-sensitive and exact.
const disableSentinel = "False"

// Auth holds credentials for the tracking backend. Token takes precedence
// over basic auth when both are set.
type Auth struct {
	Token    string `yaml:"token,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// UseKeyring reads the token from the OS keyring (service "mltrack")
	// when no token is set by file or environment.
	UseKeyring bool `yaml:"use_keyring,omitempty"`
}

// Settings is the resolved adapter configuration.
type Settings struct {
	// TrackingURI is the MLflow tracking server endpoint. Empty means
	// tracking is unconfigured and the adapter stays disabled.
	TrackingURI string `yaml:"tracking_uri,omitempty"`

	// ExperimentID selects the experiment new runs are created under.
	// Takes precedence over ExperimentName.
	ExperimentID string `yaml:"experiment_id,omitempty"`

	// ExperimentName selects the experiment by name, resolved (and
	// created if missing) at run creation time.
	ExperimentName string `yaml:"experiment_name,omitempty"`

	// RunID pins the adapter to an existing run instead of creating one.
	// Distributed workers receive this via MLFLOW_RUN_ID from the chief.
	RunID string `yaml:"run_id,omitempty"`

	Auth Auth `yaml:"auth,omitempty"`

	// RequestTimeout bounds each backend round-trip. Zero means the
	// default of 30s.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
}

// DisabledByEnv reports whether the environment force-disables tracking.
func DisabledByEnv() bool {
	return os.Getenv(EnvDisable) == disableSentinel
}

// Load reads settings from the YAML file at path. A missing file is not an
// error and yields zero-value settings; a malformed file is a ConfigError.
// If path is empty, the default settings path under the XDG config dir is
// used.
func Load(path string) (*Settings, error) {
	if path == "" {
		var err error
		path, err = SettingsPath()
		if err != nil {
			return nil, pkgerrors.Wrap(err, "resolving settings path")
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, &pkgerrors.ConfigError{
			Reason: fmt.Sprintf("cannot read settings file %s", path),
			Cause:  err,
		}
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &pkgerrors.ConfigError{
			Reason: fmt.Sprintf("cannot parse settings file %s", path),
			Cause:  err,
		}
	}

	return &s, nil
}

// Resolve produces the effective settings: file values overlaid with
// environment variables, then a keyring token lookup if requested and no
// token was found elsewhere. Resolve never fails on a missing file.
func Resolve(path string) (*Settings, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	s.applyEnv()

	if s.Auth.Token == "" && s.Auth.UseKeyring {
		if token, err := KeyringToken(); err == nil {
			s.Auth.Token = token
		}
	}

	if s.RequestTimeout == 0 {
		s.RequestTimeout = 30 * time.Second
	}

	return s, nil
}

// EnvOnly builds settings from the environment alone, ignoring the
// settings file. Fallback for when the file exists but cannot be read.
func EnvOnly() *Settings {
	var s Settings
	s.applyEnv()
	s.RequestTimeout = 30 * time.Second
	return &s
}

// applyEnv overlays environment variables onto the settings. Set env vars
// win over file values.
func (s *Settings) applyEnv() {
	if v := os.Getenv(EnvTrackingURI); v != "" {
		s.TrackingURI = v
	}
	if v := os.Getenv(EnvExperimentID); v != "" {
		s.ExperimentID = v
	}
	if v := os.Getenv(EnvExperimentName); v != "" {
		s.ExperimentName = v
	}
	if v := os.Getenv(EnvRunID); v != "" {
		s.RunID = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		s.Auth.Token = v
	}
	if v := os.Getenv(EnvUsername); v != "" {
		s.Auth.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		s.Auth.Password = v
	}
}

// Save writes the settings to the YAML file at path, creating the config
// directory if needed. If path is empty the default settings path is used.
func Save(s *Settings, path string) error {
	if path == "" {
		var err error
		path, err = SettingsPath()
		if err != nil {
			return pkgerrors.Wrap(err, "resolving settings path")
		}
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return pkgerrors.Wrap(err, "encoding settings")
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return &pkgerrors.ConfigError{
			Reason: fmt.Sprintf("cannot write settings file %s", path),
			Cause:  err,
		}
	}

	return nil
}
