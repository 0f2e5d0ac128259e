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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mltrack/mltrack/internal/config"
)

// fakeBackend is a minimal in-memory tracking server. It records every
// request body by endpoint suffix (the part after /api/2.0/mlflow/).
type fakeBackend struct {
	t *testing.T

	mu       sync.Mutex
	requests map[string][]map[string]any
	runSeq   int

	// failWith, when non-zero, makes every write endpoint fail.
	failWith int
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{t: t, requests: map[string][]map[string]any{}}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/2.0/mlflow/"
	endpoint := r.URL.Path[len(prefix):]

	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	fb.mu.Lock()
	fb.requests[endpoint] = append(fb.requests[endpoint], body)
	fail := fb.failWith
	fb.runSeq++
	seq := fb.runSeq
	fb.mu.Unlock()

	switch endpoint {
	case "experiments/get-by-name":
		name := r.URL.Query().Get("experiment_name")
		if name == "Default" {
			writeJSON(w, map[string]any{"experiment": map[string]any{"experiment_id": "0", "name": "Default"}})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]any{"error_code": "RESOURCE_DOES_NOT_EXIST", "message": "experiment not found"})
	case "experiments/create":
		writeJSON(w, map[string]any{"experiment_id": "42"})
	case "runs/get":
		writeJSON(w, map[string]any{"run": map[string]any{"info": map[string]any{
			"run_id":       r.URL.Query().Get("run_id"),
			"artifact_uri": "file:///tmp/mlruns",
		}}})
	default:
		if fail != 0 {
			w.WriteHeader(fail)
			writeJSON(w, map[string]any{"error_code": "INTERNAL_ERROR", "message": "backend down"})
			return
		}
		if endpoint == "runs/create" {
			writeJSON(w, map[string]any{"run": map[string]any{"info": map[string]any{
				"run_id": fmt.Sprintf("run-%d", seq),
			}}})
			return
		}
		writeJSON(w, map[string]any{})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (fb *fakeBackend) count(endpoint string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.requests[endpoint])
}

func (fb *fakeBackend) total() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, reqs := range fb.requests {
		n += len(reqs)
	}
	return n
}

func (fb *fakeBackend) last(t *testing.T, endpoint string) map[string]any {
	t.Helper()
	fb.mu.Lock()
	defer fb.mu.Unlock()
	reqs := fb.requests[endpoint]
	if len(reqs) == 0 {
		t.Fatalf("no requests recorded for %s", endpoint)
	}
	return reqs[len(reqs)-1]
}

// clearTrackingEnv isolates tests from the ambient MLflow environment.
func clearTrackingEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvDisable, config.EnvTrackingURI, config.EnvExperimentID,
		config.EnvExperimentName, config.EnvRunID, config.EnvToken,
		config.EnvUsername, config.EnvPassword,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func testSettingsPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "settings.yaml")
}

func newTestTracker(t *testing.T, srv *httptest.Server, cfg Config) *Tracker {
	t.Helper()
	if cfg.TrackingURI == "" {
		cfg.TrackingURI = srv.URL
	}
	return New(context.Background(),
		WithConfig(cfg),
		WithSettingsPath(testSettingsPath(t)),
	)
}

func TestNew_KillSwitchDisables(t *testing.T) {
	clearTrackingEnv(t)
	fb, srv := newFakeBackend(t)
	t.Setenv(config.EnvDisable, "False")

	tr := newTestTracker(t, srv, Config{RunID: "run-1"})

	if tr.Enabled() {
		t.Fatal("expected tracking disabled by kill switch")
	}
	ctx := context.Background()
	tr.LogParam(ctx, "lr", "0.01")
	tr.LogMetric(ctx, "loss", 1.0, 0)
	tr.SetTag(ctx, "k", "v")
	if got := tr.ActiveRunID(ctx); got != "" {
		t.Errorf("ActiveRunID = %q, want empty when disabled", got)
	}
	if tr.TrackingURI() != "" {
		t.Error("TrackingURI should be empty when disabled")
	}
	if fb.total() != 0 {
		t.Errorf("disabled tracker made %d backend calls, want 0", fb.total())
	}
}

func TestNew_KillSwitchExactLiteral(t *testing.T) {
	clearTrackingEnv(t)
	for _, v := range []string{"false", "FALSE", "0", "no"} {
		t.Run(v, func(t *testing.T) {
			_, srv := newFakeBackend(t)
			t.Setenv(config.EnvDisable, v)
			tr := newTestTracker(t, srv, Config{RunID: "run-1"})
			if !tr.Enabled() {
				t.Errorf("value %q should not disable tracking", v)
			}
		})
	}
}

func TestNew_NoURIDisables(t *testing.T) {
	clearTrackingEnv(t)
	tr := New(context.Background(), WithSettingsPath(testSettingsPath(t)))
	if tr.Enabled() {
		t.Fatal("expected tracking disabled without a URI")
	}
	if tr.DisabledReason() == "" {
		t.Error("expected a disabled reason")
	}
	// Calls must be harmless no-ops.
	tr.LogParam(context.Background(), "lr", "0.01")
	tr.SaveText(context.Background(), "content", "out.txt")
}

func TestTracker_ForwardsKeysVerbatim(t *testing.T) {
	clearTrackingEnv(t)
	fb, srv := newFakeBackend(t)
	tr := newTestTracker(t, srv, Config{RunID: "run-9"})
	ctx := context.Background()

	// Keys reach the backend exactly as given; separators like '/' and
	// ':' are the backend's to accept or reject.
	tr.LogParam(ctx, "eval/loss", "0.5")
	body := fb.last(t, "runs/log-parameter")
	if body["key"] != "eval/loss" {
		t.Errorf("param key = %v, want eval/loss", body["key"])
	}
	if body["run_id"] != "run-9" {
		t.Errorf("run_id = %v, want run-9", body["run_id"])
	}

	tr.LogMetric(ctx, "train:lr", 0.5, 7)
	body = fb.last(t, "runs/log-metric")
	if body["key"] != "train:lr" {
		t.Errorf("metric key = %v, want train:lr", body["key"])
	}
	if body["step"] != float64(7) {
		t.Errorf("step = %v, want 7", body["step"])
	}

	tr.SetTag(ctx, "host:name", "worker-1")
	body = fb.last(t, "runs/set-tag")
	if body["key"] != "host:name" {
		t.Errorf("tag key = %v, want host:name", body["key"])
	}

	if fb.count("runs/create") != 0 {
		t.Error("configured run id should suppress run creation")
	}
}

func TestTracker_BatchCalls(t *testing.T) {
	clearTrackingEnv(t)
	fb, srv := newFakeBackend(t)
	tr := newTestTracker(t, srv, Config{RunID: "run-9"})
	ctx := context.Background()

	tr.LogMetrics(ctx, map[string]float64{"a:x": 1, "b": 2}, 3)
	body := fb.last(t, "runs/log-batch")
	metrics, ok := body["metrics"].([]any)
	if !ok || len(metrics) != 2 {
		t.Fatalf("log-batch metrics = %v, want 2 entries", body["metrics"])
	}
	keys := map[string]bool{}
	for _, m := range metrics {
		keys[m.(map[string]any)["key"].(string)] = true
	}
	if !keys["a:x"] || !keys["b"] {
		t.Errorf("batch keys = %v, want a:x and b", keys)
	}

	tr.LogParams(ctx, map[string]string{"p/q": "1"})
	body = fb.last(t, "runs/log-batch")
	params := body["params"].([]any)
	if params[0].(map[string]any)["key"] != "p/q" {
		t.Errorf("batch param key = %v, want p/q", params[0])
	}

	// Empty maps never hit the wire.
	before := fb.total()
	tr.LogMetrics(ctx, nil, 0)
	tr.LogParams(ctx, nil)
	tr.SetTags(ctx, nil)
	if fb.total() != before {
		t.Error("empty batch calls should be local no-ops")
	}
}

func TestTracker_SwallowsBackendFailure(t *testing.T) {
	clearTrackingEnv(t)
	fb, srv := newFakeBackend(t)
	fb.failWith = http.StatusServiceUnavailable
	tr := newTestTracker(t, srv, Config{RunID: "run-9"})
	ctx := context.Background()

	// None of these may panic or block; failures are swallowed.
	tr.LogParam(ctx, "lr", "0.01")
	tr.LogMetric(ctx, "loss", 1.0, 0)
	tr.SetTags(ctx, map[string]string{"k": "v"})
	tr.EndRun(ctx, "FINISHED")

	if !tr.Enabled() {
		t.Error("backend failures must not disable tracking")
	}
	if fb.count("runs/log-parameter") != 1 {
		t.Error("call should still have been attempted")
	}
}

func TestTracker_ActiveRunIDAutoStart(t *testing.T) {
	clearTrackingEnv(t)
	fb, srv := newFakeBackend(t)
	tr := newTestTracker(t, srv, Config{})
	ctx := context.Background()

	runID := tr.ActiveRunID(ctx)
	if runID == "" {
		t.Fatal("expected an auto-started run id")
	}
	if fb.count("runs/create") != 1 {
		t.Fatalf("runs/create called %d times, want 1", fb.count("runs/create"))
	}
	body := fb.last(t, "runs/create")
	if body["experiment_id"] != "0" {
		t.Errorf("experiment_id = %v, want fallback 0", body["experiment_id"])
	}

	// Resolution happens once; later calls reuse the run.
	if again := tr.ActiveRunID(ctx); again != runID {
		t.Errorf("second ActiveRunID = %q, want %q", again, runID)
	}
	tr.LogParam(ctx, "lr", "0.01")
	if fb.count("runs/create") != 1 {
		t.Error("run should only be created once")
	}
}

func TestTracker_RunIDFromEnv(t *testing.T) {
	clearTrackingEnv(t)
	fb, srv := newFakeBackend(t)
	t.Setenv(config.EnvRunID, "chief-run")
	t.Setenv(config.EnvTrackingURI, srv.URL)

	tr := New(context.Background(), WithSettingsPath(testSettingsPath(t)))
	if got := tr.ActiveRunID(context.Background()); got != "chief-run" {
		t.Errorf("ActiveRunID = %q, want chief-run", got)
	}
	if fb.count("runs/create") != 0 {
		t.Error("inherited run id should suppress run creation")
	}
}

func TestTracker_ExperimentByNameCreatesWhenMissing(t *testing.T) {
	clearTrackingEnv(t)
	fb, srv := newFakeBackend(t)
	tr := newTestTracker(t, srv, Config{ExperimentName: "imagenet"})

	tr.LogParam(context.Background(), "lr", "0.01")

	if fb.count("experiments/create") != 1 {
		t.Fatal("expected missing experiment to be created")
	}
	body := fb.last(t, "runs/create")
	if body["experiment_id"] != "42" {
		t.Errorf("experiment_id = %v, want created 42", body["experiment_id"])
	}
}

func TestTracker_EndRun(t *testing.T) {
	clearTrackingEnv(t)
	fb, srv := newFakeBackend(t)
	tr := newTestTracker(t, srv, Config{RunID: "run-9"})

	tr.EndRun(context.Background(), "FAILED")

	body := fb.last(t, "runs/update")
	if body["status"] != "FAILED" {
		t.Errorf("status = %v, want FAILED", body["status"])
	}
	if body["run_id"] != "run-9" {
		t.Errorf("run_id = %v, want run-9", body["run_id"])
	}
}

func TestTracker_UnreachableServerStaysEnabled(t *testing.T) {
	clearTrackingEnv(t)
	tr := New(context.Background(),
		WithConfig(Config{TrackingURI: "http://127.0.0.1:1", RunID: "run-9"}),
		WithSettingsPath(testSettingsPath(t)),
	)
	if !tr.Enabled() {
		t.Fatal("unreachable server must not disable tracking")
	}
	caps := tr.Capabilities()
	if caps.TrackingReachable {
		t.Error("ping should have failed")
	}
	if caps.TrackingError == "" {
		t.Error("expected a tracking error in capabilities")
	}
	// Calls fail but are swallowed.
	tr.LogMetric(context.Background(), "loss", 1.0, 0)
}

func TestTracker_StoreResolutionRetriesAfterBackendError(t *testing.T) {
	clearTrackingEnv(t)
	root := t.TempDir()

	var mu sync.Mutex
	getRuns := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/2.0/mlflow/runs/get":
			mu.Lock()
			getRuns++
			n := getRuns
			mu.Unlock()
			if n == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error_code": "TEMPORARILY_UNAVAILABLE", "message": "backend restarting",
				})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"run": map[string]any{"info": map[string]any{
				"run_id":       r.URL.Query().Get("run_id"),
				"artifact_uri": "file://" + root,
			}}})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{})
		}
	}))
	t.Cleanup(srv.Close)

	tr := newTestTracker(t, srv, Config{RunID: "run-9"})
	src := filepath.Join(t.TempDir(), "model.txt")
	if err := os.WriteFile(src, []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// First upload hits the outage and is swallowed.
	tr.LogArtifact(ctx, src, "")
	mu.Lock()
	if getRuns != 1 {
		t.Fatalf("runs/get called %d times, want 1", getRuns)
	}
	mu.Unlock()
	if _, err := os.Stat(filepath.Join(root, "model.txt")); err == nil {
		t.Fatal("artifact uploaded despite backend outage")
	}

	// The outage is over; the next call must resolve the store again.
	tr.LogArtifact(ctx, src, "")
	mu.Lock()
	if getRuns != 2 {
		t.Fatalf("runs/get called %d times, want a second resolution attempt", getRuns)
	}
	mu.Unlock()
	if _, err := os.Stat(filepath.Join(root, "model.txt")); err != nil {
		t.Errorf("artifact not uploaded after backend recovered: %v", err)
	}
}

func TestTracker_Capabilities(t *testing.T) {
	clearTrackingEnv(t)
	_, srv := newFakeBackend(t)
	tr := newTestTracker(t, srv, Config{RunID: "run-9"})

	caps := tr.Capabilities()
	if !caps.Enabled {
		t.Error("expected enabled")
	}
	if !caps.TrackingReachable {
		t.Error("expected reachable against live fake")
	}
	if caps.ArtifactStore {
		t.Error("artifact store resolves lazily, not at construction")
	}
}

func TestDefault_IsReplaceable(t *testing.T) {
	clearTrackingEnv(t)
	fb, srv := newFakeBackend(t)
	tr := newTestTracker(t, srv, Config{RunID: "run-9"})
	SetDefault(tr)
	t.Cleanup(func() { SetDefault(nil) })

	LogParam(context.Background(), "lr", "0.01")
	if fb.count("runs/log-parameter") != 1 {
		t.Error("package-level call should route through the default tracker")
	}
}
