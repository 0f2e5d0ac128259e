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

package mlflow

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/mltrack/mltrack/pkg/errors"
)

// codeResourceDoesNotExist is the tracking server's error code for missing
// runs and experiments.
const codeResourceDoesNotExist = "RESOURCE_DOES_NOT_EXIST"

// maxErrorBody caps how much of an error response is read. Tracking
// servers occasionally return full HTML error pages.
const maxErrorBody = 8 << 10

// backendError converts a non-2xx response into a *errors.BackendError.
// The body is parsed as the server's JSON error envelope when possible;
// otherwise the raw (truncated) body becomes the message.
func backendError(endpoint string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	be := &pkgerrors.BackendError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-Id"),
	}

	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		be.Code = envelope.ErrorCode
		be.Message = envelope.Message
	} else {
		be.Message = strings.TrimSpace(string(body))
	}

	return be
}

// notFoundFor maps a RESOURCE_DOES_NOT_EXIST backend error to a
// *errors.NotFoundError for the given resource; other errors pass through.
func notFoundFor(resource, id string, err error) error {
	if be := pkgerrors.AsBackend(err); be != nil && be.Code == codeResourceDoesNotExist {
		return &pkgerrors.NotFoundError{Resource: resource, ID: id}
	}
	return err
}
