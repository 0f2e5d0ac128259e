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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/mltrack/mltrack/internal/log"
)

// follower tails a file by watching its parent directory. Watching the
// directory instead of the file survives the create-then-rename pattern
// loggers use when rotating.
type follower struct {
	path      string
	fromStart bool
	logger    *slog.Logger
	forward   *forwarder

	file   *os.File
	reader *bufio.Reader
	offset int64
}

func (f *follower) run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	if err := f.open(); err == nil {
		f.drain(ctx)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	} else {
		f.logger.Info("waiting for file to appear", "path", f.path)
	}
	defer f.close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create):
				f.close()
				if err := f.open(); err == nil {
					f.drain(ctx)
				}
			case event.Has(fsnotify.Write):
				if f.file == nil {
					if err := f.open(); err != nil {
						continue
					}
				}
				f.maybeRewind()
				f.drain(ctx)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				f.close()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("watcher error", log.Error(err))
		}
	}
}

func (f *follower) open() error {
	file, err := os.Open(f.path)
	if err != nil {
		return err
	}
	f.file = file
	f.offset = 0
	if !f.fromStart {
		off, err := file.Seek(0, io.SeekEnd)
		if err == nil {
			f.offset = off
		}
		// Only the first open skips history; rotations start fresh.
		f.fromStart = true
	}
	f.reader = bufio.NewReader(file)
	return nil
}

func (f *follower) close() {
	if f.file != nil {
		_ = f.file.Close()
		f.file = nil
		f.reader = nil
	}
}

// maybeRewind restarts from the top when the file shrank (truncation).
func (f *follower) maybeRewind() {
	info, err := f.file.Stat()
	if err != nil {
		return
	}
	if info.Size() < f.offset {
		if _, err := f.file.Seek(0, io.SeekStart); err == nil {
			f.offset = 0
			f.reader.Reset(f.file)
		}
	}
}

// drain reads complete lines until EOF, forwarding each.
func (f *follower) drain(ctx context.Context) {
	for {
		line, err := f.reader.ReadBytes('\n')
		f.offset += int64(len(line))
		if err != nil {
			// Partial line: rewind so the next drain re-reads it whole.
			if len(line) > 0 {
				f.offset -= int64(len(line))
				if _, serr := f.file.Seek(f.offset, io.SeekStart); serr == nil {
					f.reader.Reset(f.file)
				}
			}
			return
		}
		f.forward.record(ctx, line)
	}
}
