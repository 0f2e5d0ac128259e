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

package errors

import "fmt"

// ValidationError represents user input validation failures.
// Use this for invalid CLI input, malformed keys, or constraint violations.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// BackendError represents tracking backend failures.
// Use this for errors originating from the MLflow tracking server or the
// artifact store behind it.
type BackendError struct {
	// Endpoint is the REST endpoint that failed (e.g., "runs/log-metric")
	Endpoint string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Code is the MLflow error code (e.g., "RESOURCE_DOES_NOT_EXIST")
	Code string

	// Message is the human-readable error message
	Message string

	// RequestID correlates this error with backend logs
	RequestID string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	msg := "tracking backend error"

	if e.Endpoint != "" {
		msg = fmt.Sprintf("%s on %s", msg, e.Endpoint)
	}

	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s [HTTP %d]", msg, e.StatusCode)
	}

	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}

	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}

	if e.RequestID != "" {
		msg = fmt.Sprintf("%s (request-id: %s)", msg, e.RequestID)
	}

	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *BackendError) Unwrap() error {
	return e.Cause
}

// ConfigError represents configuration problems.
// Use this for settings file errors, missing values, or invalid config.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "tracking_uri")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error for %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NotFoundError represents a resource not found error.
// Use this when a requested run, experiment, or artifact does not exist.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "run", "experiment")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}
