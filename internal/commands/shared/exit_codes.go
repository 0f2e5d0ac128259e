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

package shared

import (
	"errors"
	"fmt"
	"os"

	pkgerrors "github.com/mltrack/mltrack/pkg/errors"
)

// Exit codes for mltrack commands. The library swallows backend
// failures; the CLI surfaces them, since an operator running a command
// by hand wants to know it did nothing.
const (
	ExitSuccess          = 0
	ExitCommandFailed    = 1
	ExitInvalidInput     = 2
	ExitTrackingDisabled = 3
	ExitBackendError     = 4
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewInvalidInputError creates an error for malformed command input
func NewInvalidInputError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidInput,
		Message: msg,
		Cause:   cause,
	}
}

// NewTrackingDisabledError creates an error for commands that require
// an enabled tracker
func NewTrackingDisabledError(reason string) *ExitError {
	return &ExitError{
		Code:    ExitTrackingDisabled,
		Message: "tracking is disabled: " + reason,
	}
}

// NewBackendError creates an error for tracking server failures
func NewBackendError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitBackendError,
		Message: msg,
		Cause:   cause,
	}
}

// HandleExitError checks if an error is an ExitError and exits with the
// appropriate code
func HandleExitError(err error) {
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", exitErr.Error())
		printSuggestion(err)
		os.Exit(exitErr.Code)
	}

	fmt.Fprintln(os.Stderr, "Error:", err.Error())
	printSuggestion(err)
	os.Exit(ExitCommandFailed)
}

// printSuggestion surfaces actionable guidance carried by validation
// errors anywhere in the chain.
func printSuggestion(err error) {
	var ve *pkgerrors.ValidationError
	if errors.As(err, &ve) && ve.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", ve.Suggestion)
	}
}
