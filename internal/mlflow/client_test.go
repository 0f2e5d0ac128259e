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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/mltrack/mltrack/pkg/errors"
)

func TestNew_RequiresURI(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty tracking URI")
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := New("http://mlflow.internal:5000/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.TrackingURI() != "http://mlflow.internal:5000" {
		t.Errorf("unexpected tracking URI: %s", c.TrackingURI())
	}
}

func TestCreateRun(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.0/mlflow/runs/create" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		var req createRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ExperimentID != "7" {
			t.Errorf("unexpected experiment id: %s", req.ExperimentID)
		}
		if req.StartTime == 0 {
			t.Error("expected start_time to be set")
		}

		json.NewEncoder(w).Encode(createRunResponse{Run: Run{
			Info: RunInfo{
				RunID:        "run-abc",
				ExperimentID: "7",
				Status:       StatusRunning,
				ArtifactURI:  "mlflow-artifacts:/7/run-abc/artifacts",
			},
		}})
	}))
	defer server.Close()

	client, err := New(server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	run, err := client.CreateRun(context.Background(), "7", map[string]string{"source": "test"})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.Info.RunID != "run-abc" {
		t.Errorf("unexpected run id: %s", run.Info.RunID)
	}
	if run.Info.ArtifactURI == "" {
		t.Error("expected artifact URI in response")
	}
}

func TestLogMetric_EncodesRequest(t *testing.T) {
	var got logMetricRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.0/mlflow/runs/log-metric" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client, _ := New(server.URL)
	err := client.LogMetric(context.Background(), "run-abc", "loss", 0.42, 1700000000000, 100)
	if err != nil {
		t.Fatalf("LogMetric: %v", err)
	}

	if got.RunID != "run-abc" || got.Key != "loss" || got.Value != 0.42 {
		t.Errorf("unexpected request: %+v", got)
	}
	if got.Timestamp != 1700000000000 {
		t.Errorf("unexpected timestamp: %d", got.Timestamp)
	}
	if got.Step != 100 {
		t.Errorf("unexpected step: %d", got.Step)
	}
}

func TestLogBatch_EncodesAllSections(t *testing.T) {
	var got logBatchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/2.0/mlflow/runs/log-batch" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client, _ := New(server.URL)
	err := client.LogBatch(context.Background(), "run-abc",
		[]Metric{{Key: "loss", Value: 0.1, Timestamp: 1, Step: 1}},
		[]Param{{Key: "lr", Value: "0.001"}},
		[]RunTag{{Key: "stage", Value: "train"}},
	)
	if err != nil {
		t.Fatalf("LogBatch: %v", err)
	}

	if len(got.Metrics) != 1 || len(got.Params) != 1 || len(got.Tags) != 1 {
		t.Errorf("unexpected batch payload: %+v", got)
	}
}

func TestGetExperimentByName_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(errorResponse{
			ErrorCode: "RESOURCE_DOES_NOT_EXIST",
			Message:   "experiment missing",
		})
	}))
	defer server.Close()

	client, _ := New(server.URL)
	_, err := client.GetExperimentByName(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !pkgerrors.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestBackendError_ParsesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "req-99")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(errorResponse{
			ErrorCode: "TEMPORARILY_UNAVAILABLE",
			Message:   "backend store down",
		})
	}))
	defer server.Close()

	client, _ := New(server.URL)
	err := client.SetTag(context.Background(), "run-abc", "k", "v")
	if err == nil {
		t.Fatal("expected error")
	}

	be := pkgerrors.AsBackend(err)
	if be == nil {
		t.Fatalf("expected BackendError, got %T", err)
	}
	if be.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unexpected status: %d", be.StatusCode)
	}
	if be.Code != "TEMPORARILY_UNAVAILABLE" {
		t.Errorf("unexpected code: %s", be.Code)
	}
	if be.RequestID != "req-99" {
		t.Errorf("unexpected request id: %s", be.RequestID)
	}
	if be.Endpoint != "runs/set-tag" {
		t.Errorf("unexpected endpoint: %s", be.Endpoint)
	}
}

func TestBackendError_NonJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>nginx error</html>"))
	}))
	defer server.Close()

	client, _ := New(server.URL)
	err := client.LogParam(context.Background(), "run-abc", "k", "v")

	be := pkgerrors.AsBackend(err)
	if be == nil {
		t.Fatalf("expected BackendError, got %T", err)
	}
	if be.Message != "<html>nginx error</html>" {
		t.Errorf("unexpected message: %q", be.Message)
	}
}

func TestAuth_TokenWinsOverBasic(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(getExperimentResponse{})
	}))
	defer server.Close()

	client, _ := New(server.URL, WithBasicAuth("alice", "hunter2"), WithToken("tok123"))
	client.Ping(context.Background())

	if gotAuth != "Bearer tok123" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
}

func TestAuth_Basic(t *testing.T) {
	var user, pass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		json.NewEncoder(w).Encode(getExperimentResponse{})
	}))
	defer server.Close()

	client, _ := New(server.URL, WithBasicAuth("alice", "hunter2"))
	client.Ping(context.Background())

	if user != "alice" || pass != "hunter2" {
		t.Errorf("unexpected basic auth: %s/%s", user, pass)
	}
}

func TestUpdateRun_TerminalStatusSetsEndTime(t *testing.T) {
	var got updateRunRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client, _ := New(server.URL)
	if err := client.UpdateRun(context.Background(), "run-abc", StatusFinished); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	if got.Status != StatusFinished {
		t.Errorf("unexpected status: %s", got.Status)
	}
	if got.EndTime == 0 {
		t.Error("expected end_time for terminal status")
	}
}
