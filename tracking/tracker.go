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
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mltrack/mltrack/internal/artifact"
	"github.com/mltrack/mltrack/internal/config"
	"github.com/mltrack/mltrack/internal/log"
	"github.com/mltrack/mltrack/internal/mlflow"
	"github.com/mltrack/mltrack/internal/telemetry"
	"github.com/mltrack/mltrack/pkg/httpclient"
)

const (
	// pingTimeout bounds the informational reachability check at
	// construction. Kept short so a dead server does not stall job
	// startup.
	pingTimeout = 5 * time.Second

	// warnInterval and warnBurst throttle swallowed-error warnings so a
	// long outage does not flood the training log.
	warnInterval = 30 * time.Second
	warnBurst    = 5

	// fallbackExperimentID is MLflow's built-in Default experiment.
	fallbackExperimentID = "0"
)

// Terminal run statuses accepted by EndRun.
const (
	StatusFinished = "FINISHED"
	StatusFailed   = "FAILED"
	StatusKilled   = "KILLED"
)

// Tracker is the adapter handle. All methods are safe for concurrent
// use and none of them returns an error: failures are logged, counted,
// and swallowed.
type Tracker struct {
	enabled        bool
	disabledReason string

	settings   *config.Settings
	client     *mlflow.Client
	httpClient *http.Client
	logger     *slog.Logger
	warn       *log.Limited
	collector  *telemetry.Collector
	caps       Capabilities

	mu       sync.Mutex
	runID    string
	store    artifact.Store
	storeErr error
	storeSet bool
}

// New builds a Tracker. It never fails: configuration problems disable
// tracking rather than erroring, so callers can construct one
// unconditionally at job start.
//
// Detection order: the TF_YARN_USE_MLFLOW="False" kill switch wins,
// then a missing tracking URI disables with a warning. A reachability
// ping runs when enabled but its outcome is informational only.
func New(ctx context.Context, opts ...Option) *Tracker {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = log.New(log.FromEnv())
	}
	logger = log.WithComponent(logger, "tracking")

	t := &Tracker{
		logger:    logger,
		warn:      log.NewLimited(logger, warnInterval, warnBurst),
		collector: o.collector,
	}

	settings, err := config.Resolve(o.settingsPath)
	if err != nil {
		logger.Warn("settings file unreadable, continuing with environment only", log.Error(err))
		settings = config.EnvOnly()
	}
	if o.hasCfg {
		merged := o.cfg.merge(*settings)
		settings = &merged
	}
	t.settings = settings

	if config.DisabledByEnv() {
		t.disable("disabled by " + config.EnvDisable)
		return t
	}
	if settings.TrackingURI == "" {
		t.disable("no tracking URI configured")
		t.logger.Warn("tracking disabled: no tracking URI configured",
			"hint", "set "+config.EnvTrackingURI+" or run `mltrack auth login`")
		return t
	}

	t.httpClient = o.httpClient
	if t.httpClient == nil {
		hcCfg := httpclient.DefaultConfig()
		if settings.RequestTimeout > 0 {
			hcCfg.Timeout = settings.RequestTimeout
		}
		if hc, err := httpclient.New(hcCfg); err == nil {
			t.httpClient = hc
		}
	}

	var clientOpts []mlflow.Option
	if t.httpClient != nil {
		clientOpts = append(clientOpts, mlflow.WithHTTPClient(t.httpClient))
	} else {
		clientOpts = append(clientOpts, mlflow.WithTimeout(settings.RequestTimeout))
	}
	if settings.Auth.Token != "" {
		clientOpts = append(clientOpts, mlflow.WithToken(settings.Auth.Token))
	} else if settings.Auth.Username != "" {
		clientOpts = append(clientOpts, mlflow.WithBasicAuth(settings.Auth.Username, settings.Auth.Password))
	}
	client, err := mlflow.New(settings.TrackingURI, clientOpts...)
	if err != nil {
		t.disable(fmt.Sprintf("invalid tracking URI %q: %v", settings.TrackingURI, err))
		t.logger.Warn("tracking disabled: invalid tracking URI",
			log.TrackingURIKey, settings.TrackingURI, log.Error(err))
		return t
	}
	t.client = client
	t.enabled = true
	t.runID = settings.RunID
	t.caps.Enabled = true

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		t.caps.TrackingError = err.Error()
		logger.Warn("tracking server unreachable, calls will be attempted anyway",
			log.TrackingURIKey, settings.TrackingURI, log.Error(err))
	} else {
		t.caps.TrackingReachable = true
	}
	return t
}

func (t *Tracker) disable(reason string) {
	t.enabled = false
	t.disabledReason = reason
	t.caps.Enabled = false
	t.caps.DisabledReason = reason
	t.logger.Debug("tracking disabled", "reason", reason)
}

// Enabled reports whether calls will be forwarded to the backend.
func (t *Tracker) Enabled() bool {
	return t.enabled
}

// DisabledReason explains a false Enabled. Empty when enabled.
func (t *Tracker) DisabledReason() string {
	return t.disabledReason
}

// TrackingURI returns the configured tracking server URL, or "" when
// tracking is disabled.
func (t *Tracker) TrackingURI() string {
	if !t.enabled {
		return ""
	}
	return t.client.TrackingURI()
}

// Capabilities returns a snapshot of what the Tracker can do right now.
func (t *Tracker) Capabilities() Capabilities {
	t.mu.Lock()
	defer t.mu.Unlock()
	caps := t.caps
	if t.storeSet {
		if t.storeErr != nil {
			caps.ArtifactError = t.storeErr.Error()
		} else {
			caps.ArtifactStore = true
			caps.ArtifactScheme = t.store.Scheme()
		}
	}
	return caps
}

// ActiveRunID returns the id of the run calls attach to, resolving one
// if needed. Returns "" when tracking is disabled or the run cannot be
// resolved; like every other method it never fails.
func (t *Tracker) ActiveRunID(ctx context.Context) string {
	if !t.enabled {
		return ""
	}
	runID, err := t.ensureRun(ctx)
	if err != nil {
		t.swallow(ctx, "active_run_id", err)
		return ""
	}
	return runID
}

// ensureRun resolves the run id, starting a run if nothing configured
// one. Callers hold no lock.
func (t *Tracker) ensureRun(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.runID != "" {
		return t.runID, nil
	}

	expID, err := t.resolveExperiment(ctx)
	if err != nil {
		return "", err
	}
	t.logger.Warn("no active run, starting one",
		log.ExperimentIDKey, expID,
		"hint", "set "+config.EnvRunID+" to attach to an existing run")
	run, err := t.client.CreateRun(ctx, expID, map[string]string{
		"mlflow.source.type": "JOB",
	})
	if err != nil {
		return "", err
	}
	t.runID = run.Info.RunID
	t.logger.Info("started run", log.RunIDKey, t.runID, log.ExperimentIDKey, expID)
	return t.runID, nil
}

// resolveExperiment picks the experiment new runs land in: explicit id,
// then name (created if absent), then MLflow's Default experiment.
func (t *Tracker) resolveExperiment(ctx context.Context) (string, error) {
	if t.settings.ExperimentID != "" {
		return t.settings.ExperimentID, nil
	}
	name := t.settings.ExperimentName
	if name == "" {
		return fallbackExperimentID, nil
	}
	exp, err := t.client.GetExperimentByName(ctx, name)
	if err == nil {
		return exp.ExperimentID, nil
	}
	if !isNotFound(err) {
		return "", err
	}
	id, err := t.client.CreateExperiment(ctx, name)
	if err != nil {
		return "", err
	}
	t.logger.Info("created experiment", "experiment_name", name, log.ExperimentIDKey, id)
	return id, nil
}

// SetTag records a single tag on the active run. The key is forwarded
// verbatim; callers that need backend-safe names apply FormatKey first.
func (t *Tracker) SetTag(ctx context.Context, key, value string) {
	t.guard(ctx, "set_tag", func(ctx context.Context, runID string) error {
		return t.client.SetTag(ctx, runID, key, value)
	})
}

// SetTags records several tags in one backend call.
func (t *Tracker) SetTags(ctx context.Context, tags map[string]string) {
	if len(tags) == 0 {
		return
	}
	t.guard(ctx, "set_tags", func(ctx context.Context, runID string) error {
		batch := make([]mlflow.RunTag, 0, len(tags))
		for k, v := range tags {
			batch = append(batch, mlflow.RunTag{Key: k, Value: v})
		}
		return t.client.LogBatch(ctx, runID, nil, nil, batch)
	})
}

// LogParam records a single parameter on the active run.
func (t *Tracker) LogParam(ctx context.Context, key, value string) {
	t.guard(ctx, "log_param", func(ctx context.Context, runID string) error {
		return t.client.LogParam(ctx, runID, key, value)
	})
}

// LogParams records several parameters in one backend call.
func (t *Tracker) LogParams(ctx context.Context, params map[string]string) {
	if len(params) == 0 {
		return
	}
	t.guard(ctx, "log_params", func(ctx context.Context, runID string) error {
		batch := make([]mlflow.Param, 0, len(params))
		for k, v := range params {
			batch = append(batch, mlflow.Param{Key: k, Value: v})
		}
		return t.client.LogBatch(ctx, runID, nil, batch, nil)
	})
}

// LogMetric records one metric sample at the given step.
func (t *Tracker) LogMetric(ctx context.Context, key string, value float64, step int64) {
	t.guard(ctx, "log_metric", func(ctx context.Context, runID string) error {
		return t.client.LogMetric(ctx, runID, key, value, time.Now().UnixMilli(), step)
	})
}

// LogMetrics records several metrics at the same step in one call.
func (t *Tracker) LogMetrics(ctx context.Context, metrics map[string]float64, step int64) {
	if len(metrics) == 0 {
		return
	}
	t.guard(ctx, "log_metrics", func(ctx context.Context, runID string) error {
		now := time.Now().UnixMilli()
		batch := make([]mlflow.Metric, 0, len(metrics))
		for k, v := range metrics {
			batch = append(batch, mlflow.Metric{Key: k, Value: v, Timestamp: now, Step: step})
		}
		return t.client.LogBatch(ctx, runID, batch, nil, nil)
	})
}

// LogArtifact uploads a local file to the run's artifact store, under
// artifactPath ("" for the artifact root).
func (t *Tracker) LogArtifact(ctx context.Context, localPath, artifactPath string) {
	t.guard(ctx, "log_artifact", func(ctx context.Context, runID string) error {
		store, err := t.ensureStore(ctx, runID)
		if err != nil {
			return err
		}
		return store.Upload(ctx, localPath, artifactPath)
	})
}

// LogArtifacts uploads a local directory tree to the artifact store.
func (t *Tracker) LogArtifacts(ctx context.Context, localDir, artifactPath string) {
	t.LogArtifactsMatching(ctx, localDir, artifactPath, nil, nil)
}

// LogArtifactsMatching uploads the files under localDir whose
// slash-relative paths match the include globs (all files when empty)
// and none of the exclude globs.
func (t *Tracker) LogArtifactsMatching(ctx context.Context, localDir, artifactPath string, include, exclude []string) {
	t.guard(ctx, "log_artifacts", func(ctx context.Context, runID string) error {
		store, err := t.ensureStore(ctx, runID)
		if err != nil {
			return err
		}
		return artifact.UploadDir(ctx, store, localDir, artifactPath, artifact.DirFilter{
			Include: include,
			Exclude: exclude,
		})
	})
}

// EndRun marks the active run terminated with the given status
// ("FINISHED", "FAILED", "KILLED"). Subsequent calls on the Tracker
// still forward; the backend decides whether it accepts them.
func (t *Tracker) EndRun(ctx context.Context, status string) {
	t.guard(ctx, "end_run", func(ctx context.Context, runID string) error {
		return t.client.UpdateRun(ctx, runID, status)
	})
}

// ensureStore resolves the artifact store for the run. Resolution is
// lazy: the artifact root is a per-run property, so probing at
// construction would itself force a run to exist. Only two outcomes are
// cached: a working store, and an artifact root no store can serve
// (unknown scheme, bad configuration). Backend and probe failures are
// left uncached so the next artifact call resolves again.
func (t *Tracker) ensureStore(ctx context.Context, runID string) (artifact.Store, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.storeSet {
		return t.store, t.storeErr
	}

	run, err := t.client.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact root: %w", err)
	}
	store, err := artifact.ForRoot(run.Info.ArtifactURI, artifact.Options{
		TrackingURI: t.client.TrackingURI(),
		HTTPClient:  t.httpClient,
		Token:       t.settings.Auth.Token,
		Username:    t.settings.Auth.Username,
		Password:    t.settings.Auth.Password,
	})
	if err != nil {
		t.storeErr = err
		t.storeSet = true
		t.logger.Warn("artifact uploads unavailable for this run", log.RunIDKey, runID, log.Error(err))
		return nil, err
	}
	if err := store.Probe(ctx); err != nil {
		return nil, fmt.Errorf("probe %s store: %w", store.Scheme(), err)
	}
	t.store = store
	t.storeSet = true
	t.logger.Debug("resolved artifact store", "scheme", store.Scheme())
	return store, nil
}
