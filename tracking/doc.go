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
Package tracking is a defensive adapter around an MLflow tracking server
for distributed training jobs.

The adapter's one contract: tracking must never take the training job
down. Whether the server is unconfigured, unreachable, or failing, every
call on a Tracker either forwards to the backend or degrades to a logged
no-op. No method returns an error.

# Detection

Whether tracking is active is decided once, when the Tracker is built:

  - TF_YARN_USE_MLFLOW="False" (the exact literal) force-disables it;
  - no configured tracking URI (MLFLOW_TRACKING_URI or settings file)
    disables it with a warning;
  - otherwise it is enabled. An unreachable server does NOT disable
    tracking; individual call failures are logged and swallowed so a
    server that comes back mid-job picks up where it left off.

# Usage

	t := tracking.New(ctx)
	t.LogParam(ctx, "learning_rate", "0.001")
	t.LogMetric(ctx, "loss", 0.42, 100)
	t.SaveText(ctx, report, "evaluation.txt")

Or through the process-wide default tracker, which matches how training
code typically wants to call it:

	tracking.LogMetric(ctx, "loss", 0.42, 100)

# Run resolution

Calls need a run to attach to. The Tracker resolves one lazily: an
explicitly configured run id first, then MLFLOW_RUN_ID (how distributed
workers inherit the chief's run), and as a last resort it starts a new
run with a warning. The silent auto-start mirrors the Python client and
can mask a misconfigured job; watch for the warning.
*/
package tracking
