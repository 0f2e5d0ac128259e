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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mltrack/mltrack/pkg/httpclient"
)

// apiPrefix is the REST API 2.0 path prefix on the tracking server.
const apiPrefix = "/api/2.0/mlflow/"

// defaultExperimentName is the experiment every tracking server creates on
// first start; used as the target of the reachability probe.
const defaultExperimentName = "Default"

// Client is a client for the MLflow tracking server REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	username   string
	password   string
}

// New creates a tracking server client for the given tracking URI.
func New(trackingURI string, opts ...Option) (*Client, error) {
	if trackingURI == "" {
		return nil, fmt.Errorf("tracking URI is required")
	}

	c := &Client{
		baseURL: strings.TrimRight(trackingURI, "/"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.httpClient == nil {
		cfg := httpclient.DefaultConfig()
		cfg.UserAgent = "mltrack/1.0"
		hc, err := httpclient.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create http client: %w", err)
		}
		c.httpClient = hc
	}

	return c, nil
}

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom HTTP client (e.g., for testing).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = client
		return nil
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		cfg := httpclient.DefaultConfig()
		cfg.Timeout = timeout
		cfg.UserAgent = "mltrack/1.0"
		hc, err := httpclient.New(cfg)
		if err != nil {
			return err
		}
		c.httpClient = hc
		return nil
	}
}

// WithToken sets bearer token authentication.
func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithBasicAuth sets basic authentication. A bearer token, if also
// configured, takes precedence.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) error {
		c.username = username
		c.password = password
		return nil
	}
}

// TrackingURI returns the configured tracking server endpoint.
func (c *Client) TrackingURI() string {
	return c.baseURL
}

// Ping checks whether the tracking server is reachable by fetching the
// Default experiment every server is born with.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetExperimentByName(ctx, defaultExperimentName)
	return err
}

// CreateRun starts a new run under the given experiment and returns it.
func (c *Client) CreateRun(ctx context.Context, experimentID string, tags map[string]string) (*Run, error) {
	req := createRunRequest{
		ExperimentID: experimentID,
		StartTime:    time.Now().UnixMilli(),
		Tags:         tagsFromMap(tags),
	}

	var resp createRunResponse
	if err := c.post(ctx, "runs/create", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Run, nil
}

// GetRun fetches a run by id.
func (c *Client) GetRun(ctx context.Context, runID string) (*Run, error) {
	query := url.Values{"run_id": {runID}}

	var resp getRunResponse
	if err := c.get(ctx, "runs/get", query, &resp); err != nil {
		return nil, err
	}
	return &resp.Run, nil
}

// UpdateRun sets the status (and, for terminal statuses, the end time) of
// a run.
func (c *Client) UpdateRun(ctx context.Context, runID, status string) error {
	req := updateRunRequest{RunID: runID, Status: status}
	if status != StatusRunning {
		req.EndTime = time.Now().UnixMilli()
	}
	return c.post(ctx, "runs/update", req, nil)
}

// SetTag sets a tag on a run.
func (c *Client) SetTag(ctx context.Context, runID, key, value string) error {
	return c.post(ctx, "runs/set-tag", setTagRequest{RunID: runID, Key: key, Value: value}, nil)
}

// LogParam logs a parameter on a run. Parameters are write-once on the
// server side; relogging a different value is a backend error.
func (c *Client) LogParam(ctx context.Context, runID, key, value string) error {
	return c.post(ctx, "runs/log-parameter", logParamRequest{RunID: runID, Key: key, Value: value}, nil)
}

// LogMetric logs a single metric point on a run.
func (c *Client) LogMetric(ctx context.Context, runID, key string, value float64, timestamp, step int64) error {
	req := logMetricRequest{
		RunID:     runID,
		Key:       key,
		Value:     value,
		Timestamp: timestamp,
		Step:      step,
	}
	return c.post(ctx, "runs/log-metric", req, nil)
}

// LogBatch logs metrics, params, and tags in one round-trip.
func (c *Client) LogBatch(ctx context.Context, runID string, metrics []Metric, params []Param, tags []RunTag) error {
	req := logBatchRequest{
		RunID:   runID,
		Metrics: metrics,
		Params:  params,
		Tags:    tags,
	}
	return c.post(ctx, "runs/log-batch", req, nil)
}

// GetExperimentByName fetches an experiment by name. Returns a
// *errors.NotFoundError when the experiment does not exist.
func (c *Client) GetExperimentByName(ctx context.Context, name string) (*Experiment, error) {
	query := url.Values{"experiment_name": {name}}

	var resp getExperimentResponse
	if err := c.get(ctx, "experiments/get-by-name", query, &resp); err != nil {
		return nil, notFoundFor("experiment", name, err)
	}
	return &resp.Experiment, nil
}

// CreateExperiment creates a named experiment and returns its id.
func (c *Client) CreateExperiment(ctx context.Context, name string) (string, error) {
	var resp createExperimentResponse
	if err := c.post(ctx, "experiments/create", createExperimentRequest{Name: name}, &resp); err != nil {
		return "", err
	}
	return resp.ExperimentID, nil
}

// get performs a GET request against an API endpoint.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	u := c.baseURL + apiPrefix + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req, endpoint, out)
}

// post performs a POST request with a JSON body against an API endpoint.
func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, endpoint, out)
}

// do executes the request, maps non-2xx responses to typed backend
// errors, and decodes the response body into out when given.
func (c *Client) do(req *http.Request, endpoint string, out any) error {
	c.addAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return backendError(endpoint, resp)
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}

	return nil
}

// addAuth adds authentication headers to the request if configured.
func (c *Client) addAuth(req *http.Request) {
	switch {
	case c.token != "":
		req.Header.Set("Authorization", "Bearer "+c.token)
	case c.username != "":
		req.SetBasicAuth(c.username, c.password)
	}
}

func tagsFromMap(tags map[string]string) []RunTag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]RunTag, 0, len(tags))
	for k, v := range tags {
		out = append(out, RunTag{Key: k, Value: v})
	}
	return out
}
