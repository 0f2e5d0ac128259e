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

// Package watch implements `mltrack watch`: tailing a JSONL event file
// written by a training process and forwarding each record to the
// active run. This decouples the trainer from the tracking server
// entirely; the trainer only ever appends to a local file.
package watch

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mltrack/mltrack/internal/commands/shared"
	"github.com/mltrack/mltrack/internal/log"
	"github.com/mltrack/mltrack/internal/telemetry"
	"github.com/mltrack/mltrack/tracking"
)

// NewCommand creates the watch command.
func NewCommand() *cobra.Command {
	var (
		fromStart bool
		listen    string
		flushEnd  bool
	)

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Tail a JSONL event file and forward records to the active run",
		Long: `Watch follows a JSON-lines file and forwards each record:

	{"type":"metric","key":"loss","value":0.42,"step":100}
	{"type":"param","key":"lr","value":"0.001"}
	{"type":"tag","key":"phase","value":"eval"}

The file does not need to exist yet; watch waits for it. Stops on
SIGINT/SIGTERM. With --end-run the active run is marked FINISHED on
shutdown. With --listen, forwarding metrics are served on
<addr>/metrics in Prometheus format.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], fromStart, listen, flushEnd)
		},
	}

	cmd.Flags().BoolVar(&fromStart, "from-start", false, "Replay the file from the beginning instead of tailing new lines")
	cmd.Flags().StringVar(&listen, "listen", "", "Serve forwarding metrics on this address (e.g. :9464)")
	cmd.Flags().BoolVar(&flushEnd, "end-run", false, "Mark the run FINISHED when the watcher stops")

	return cmd
}

func runWatch(cmd *cobra.Command, path string, fromStart bool, listen string, flushEnd bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.New(log.FromEnv())
	logger = log.WithComponent(logger, "watch")

	v, _, _ := shared.GetVersion()
	provider, err := telemetry.NewProvider(ctx, telemetry.FromEnv("mltrack", v))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	t := shared.NewTracker(ctx, tracking.WithCollector(provider.Collector()))
	if err := shared.RequireEnabled(t); err != nil {
		return err
	}

	if listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", provider.Handler())
		srv := &http.Server{Addr: listen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics listener failed", log.Error(err))
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", listen)
	}

	f := &follower{
		path:      path,
		fromStart: fromStart,
		logger:    logger,
		forward:   newForwarder(t, logger),
	}
	if err := f.run(ctx); err != nil {
		return err
	}

	if flushEnd {
		// Use a fresh context: the signal context is already done.
		endCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		t.EndRun(endCtx, tracking.StatusFinished)
	}
	return nil
}
