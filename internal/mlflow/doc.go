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

/*
Package mlflow is a client for the MLflow tracking server REST API 2.0.

The client covers the subset of the API the adapter forwards to: run
lifecycle (create, get, update), tags, parameters, metrics (single and
batch), and experiment lookup. Every call takes a context, performs a
single attempt, and returns a typed *errors.BackendError on any non-2xx
response.

# Basic Usage

	client, err := mlflow.New("http://mlflow.internal:5000")
	if err != nil {
	    return err
	}

	run, err := client.CreateRun(ctx, "7", map[string]string{"source": "tf-yarn"})
	if err != nil {
	    return err
	}

	err = client.LogMetric(ctx, run.Info.RunID, "loss", 0.42, time.Now().UnixMilli(), 100)

# Authentication

Bearer token and basic auth are supported; token wins when both are set:

	client, _ := mlflow.New(uri, mlflow.WithToken(token))
	client, _ := mlflow.New(uri, mlflow.WithBasicAuth(user, pass))
*/
package mlflow
