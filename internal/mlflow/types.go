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

// Run statuses as defined by the tracking server.
const (
	StatusRunning  = "RUNNING"
	StatusFinished = "FINISHED"
	StatusFailed   = "FAILED"
	StatusKilled   = "KILLED"
)

// Experiment describes a tracking experiment.
type Experiment struct {
	ExperimentID     string `json:"experiment_id"`
	Name             string `json:"name"`
	ArtifactLocation string `json:"artifact_location"`
	LifecycleStage   string `json:"lifecycle_stage"`
}

// RunInfo is the metadata portion of a run.
type RunInfo struct {
	RunID        string `json:"run_id"`
	ExperimentID string `json:"experiment_id"`
	Status       string `json:"status"`
	StartTime    int64  `json:"start_time"`
	EndTime      int64  `json:"end_time,omitempty"`
	ArtifactURI  string `json:"artifact_uri"`
}

// RunData holds the logged values of a run.
type RunData struct {
	Metrics []Metric `json:"metrics,omitempty"`
	Params  []Param  `json:"params,omitempty"`
	Tags    []RunTag `json:"tags,omitempty"`
}

// Run is a tracking run: info plus logged data.
type Run struct {
	Info RunInfo `json:"info"`
	Data RunData `json:"data"`
}

// Metric is a single logged metric point.
type Metric struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step,omitempty"`
}

// Param is a single logged parameter.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RunTag is a single run tag.
type RunTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Request/response envelopes for the REST endpoints.

type createRunRequest struct {
	ExperimentID string   `json:"experiment_id"`
	StartTime    int64    `json:"start_time"`
	Tags         []RunTag `json:"tags,omitempty"`
}

type createRunResponse struct {
	Run Run `json:"run"`
}

type getRunResponse struct {
	Run Run `json:"run"`
}

type updateRunRequest struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	EndTime int64  `json:"end_time,omitempty"`
}

type setTagRequest struct {
	RunID string `json:"run_id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type logParamRequest struct {
	RunID string `json:"run_id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type logMetricRequest struct {
	RunID     string  `json:"run_id"`
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step,omitempty"`
}

type logBatchRequest struct {
	RunID   string   `json:"run_id"`
	Metrics []Metric `json:"metrics,omitempty"`
	Params  []Param  `json:"params,omitempty"`
	Tags    []RunTag `json:"tags,omitempty"`
}

type getExperimentResponse struct {
	Experiment Experiment `json:"experiment"`
}

type createExperimentRequest struct {
	Name string `json:"name"`
}

type createExperimentResponse struct {
	ExperimentID string `json:"experiment_id"`
}

// errorResponse is the tracking server's error body.
type errorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}
