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

package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mltrack/mltrack/internal/log"
	"github.com/mltrack/mltrack/tracking"
)

// event is one JSONL record in the watched file.
type event struct {
	Type  string          `json:"type"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
	Step  int64           `json:"step"`
}

// forwarder translates events into tracker calls. Malformed lines are
// logged and dropped; a bad trainer line must not stop the tail.
type forwarder struct {
	tracker *tracking.Tracker
	logger  *slog.Logger
	bad     *log.Limited
}

func newForwarder(t *tracking.Tracker, logger *slog.Logger) *forwarder {
	return &forwarder{
		tracker: t,
		logger:  logger,
		bad:     log.NewLimited(logger, 10*time.Second, 5),
	}
}

func (f *forwarder) record(ctx context.Context, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	var ev event
	if err := json.Unmarshal(line, &ev); err != nil {
		f.bad.Warn("dropping malformed event line", log.Error(err))
		return
	}
	if ev.Key == "" {
		f.bad.Warn("dropping event without key", "type", ev.Type)
		return
	}

	switch ev.Type {
	case "metric":
		var value float64
		if err := json.Unmarshal(ev.Value, &value); err != nil {
			f.bad.Warn("dropping metric with non-numeric value", "key", ev.Key)
			return
		}
		f.tracker.LogMetric(ctx, ev.Key, value, ev.Step)
	case "param":
		f.tracker.LogParam(ctx, ev.Key, stringValue(ev.Value))
	case "tag":
		f.tracker.SetTag(ctx, ev.Key, stringValue(ev.Value))
	default:
		f.bad.Warn("dropping event with unknown type", "type", ev.Type)
	}
}

// stringValue accepts both "0.01" and 0.01 in the value field; trainers
// are sloppy about quoting.
func stringValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
