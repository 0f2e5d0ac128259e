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

package main

import (
	"github.com/mltrack/mltrack/internal/cli"
	"github.com/mltrack/mltrack/internal/commands/auth"
	"github.com/mltrack/mltrack/internal/commands/logcmd"
	"github.com/mltrack/mltrack/internal/commands/probe"
	"github.com/mltrack/mltrack/internal/commands/runcmd"
	versioncmd "github.com/mltrack/mltrack/internal/commands/version"
	"github.com/mltrack/mltrack/internal/commands/watch"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	// Forwarding commands
	rootCmd.AddCommand(logcmd.NewCommand())
	rootCmd.AddCommand(runcmd.NewCommand())
	rootCmd.AddCommand(watch.NewCommand())

	// Configuration and diagnostics
	rootCmd.AddCommand(auth.NewCommand())
	rootCmd.AddCommand(probe.NewCommand())
	rootCmd.AddCommand(versioncmd.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
