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
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mltrack/mltrack/internal/log"
	"github.com/mltrack/mltrack/internal/telemetry"
	pkgerrors "github.com/mltrack/mltrack/pkg/errors"
)

const tracerName = "mltrack"

// guard runs one tracking operation under the adapter's contract: do
// nothing when disabled, resolve the run, forward, and swallow any
// failure. This is the single funnel every forwarding method goes
// through.
func (t *Tracker) guard(ctx context.Context, op string, fn func(ctx context.Context, runID string) error) {
	if !t.enabled {
		t.collector.RecordCall(ctx, op, telemetry.OutcomeSkipped, 0)
		log.Trace(t.logger, "tracking call skipped", slog.String(log.OpKey, op))
		return
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "mlflow."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("mlflow.op", op)))
	defer span.End()

	start := time.Now()
	runID, err := t.ensureRun(ctx)
	if err == nil {
		span.SetAttributes(attribute.String("mlflow.run_id", runID))
		err = fn(ctx, runID)
	}
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.collector.RecordCall(ctx, op, telemetry.OutcomeError, elapsed.Seconds())
		t.swallow(ctx, op, err)
		return
	}
	span.SetStatus(codes.Ok, "")
	t.collector.RecordCall(ctx, op, telemetry.OutcomeOK, elapsed.Seconds())
	t.logger.Debug("tracking call forwarded",
		log.OpKey, op, log.Duration("duration", elapsed.Milliseconds()))
}

// swallow is the terminal stop for every backend failure: count it,
// warn (rate limited), and return to the caller as if nothing happened.
func (t *Tracker) swallow(ctx context.Context, op string, err error) {
	t.collector.RecordSwallowed(ctx, op)
	t.warn.Warn("tracking call failed, continuing without it",
		log.OpKey, op, log.Error(err))
}

func isNotFound(err error) bool {
	return pkgerrors.IsNotFound(err)
}
