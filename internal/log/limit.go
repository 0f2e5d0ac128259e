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

package log

import (
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limited wraps a logger with a token bucket so that repeated warnings
// during a tracking backend outage do not flood the host job's logs.
// The first warning always gets through; subsequent ones are counted and
// surfaced as a "suppressed" attribute on the next allowed entry.
type Limited struct {
	logger  *slog.Logger
	limiter *rate.Limiter
	dropped atomic.Int64
}

// NewLimited creates a rate-limited warner allowing one entry per interval
// with the given burst. A burst of at least 1 guarantees the first warning
// is never suppressed.
func NewLimited(logger *slog.Logger, interval time.Duration, burst int) *Limited {
	if burst < 1 {
		burst = 1
	}
	return &Limited{
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(interval), burst),
	}
}

// Warn logs at warning level if the limiter allows it, otherwise counts
// the entry as dropped.
func (l *Limited) Warn(msg string, args ...any) {
	if !l.limiter.Allow() {
		l.dropped.Add(1)
		return
	}
	if n := l.dropped.Swap(0); n > 0 {
		args = append(args, slog.Int64("suppressed", n))
	}
	l.logger.Warn(msg, args...)
}

// Dropped returns the number of warnings suppressed since the last
// allowed entry.
func (l *Limited) Dropped() int64 {
	return l.dropped.Load()
}
