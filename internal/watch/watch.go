// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch uploads documents dropped into a folder.
//
// New or rewritten files with an accepted extension are debounced (so a
// file still being copied is uploaded once, when it settles), rate limited
// and handed to the uploader. Each outcome is reported as an Event.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/docchat/internal/api"
	"github.com/jeranaias/docchat/internal/logging"
	"github.com/jeranaias/docchat/internal/model"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// DefaultExtensions are the file types the document service accepts.
var DefaultExtensions = []string{".pdf", ".docx", ".txt", ".md", ".csv"}

// DefaultMaxFileSize matches the service's 10MB upload limit.
const DefaultMaxFileSize = 10 * 1024 * 1024

// DefaultDebounce is how long a file must be quiet before upload.
const DefaultDebounce = 500 * time.Millisecond

// Uploader sends one file to the document store.
type Uploader interface {
	UploadFile(ctx context.Context, path string) api.Result[model.Document]
}

// Config tunes a Watcher.
type Config struct {
	Dir           string
	Extensions    []string
	MaxFileSize   int64
	Debounce      time.Duration
	UploadsPerSec float64
}

func (c *Config) fillDefaults() {
	if len(c.Extensions) == 0 {
		c.Extensions = DefaultExtensions
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.UploadsPerSec <= 0 {
		c.UploadsPerSec = 1
	}
}

// =============================================================================
// EVENTS
// =============================================================================

// Event reports what happened to one file.
type Event struct {
	Path     string
	Document model.Document
	// Skipped explains why a file was not uploaded. Empty on upload.
	Skipped     string
	Err         error
	AuthExpired bool
}

// Uploaded reports whether the file reached the document store.
func (e Event) Uploaded() bool {
	return e.Skipped == "" && e.Err == nil
}

// ErrNotDirectory is returned when Config.Dir is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// =============================================================================
// WATCHER
// =============================================================================

// Watcher watches one directory and uploads settled files.
type Watcher struct {
	cfg      Config
	uploader Uploader
	limiter  *rate.Limiter
	log      *zap.Logger
	exts     map[string]bool

	mu      sync.Mutex
	pending map[string]time.Time
	seen    map[string]time.Time // path -> mod time already uploaded
}

// New creates a watcher. It does nothing until Run.
func New(cfg Config, uploader Uploader, log *zap.Logger) (*Watcher, error) {
	cfg.fillDefaults()

	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", cfg.Dir, ErrNotDirectory)
	}

	exts := make(map[string]bool, len(cfg.Extensions))
	for _, e := range cfg.Extensions {
		exts[strings.ToLower(e)] = true
	}

	return &Watcher{
		cfg:      cfg,
		uploader: uploader,
		limiter:  rate.NewLimiter(rate.Limit(cfg.UploadsPerSec), 1),
		log:      logging.OrNop(log),
		exts:     exts,
		pending:  make(map[string]time.Time),
		seen:     make(map[string]time.Time),
	}, nil
}

// Run watches until ctx is done, sending an Event per handled file. Run
// closes events when it returns.
func (w *Watcher) Run(ctx context.Context, events chan<- Event) error {
	defer close(events)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Dir, err)
	}
	w.log.Info("watching for documents", zap.String("dir", w.cfg.Dir), zap.Strings("extensions", w.cfg.Extensions))

	ticker := time.NewTicker(w.cfg.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.touch(ev.Name, time.Now())
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.forget(ev.Name)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))

		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				ev, ok := w.handle(ctx, path)
				if !ok {
					continue
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

// touch records a change; files with other extensions are ignored outright.
func (w *Watcher) touch(path string, at time.Time) {
	if !w.exts[strings.ToLower(filepath.Ext(path))] {
		return
	}
	w.mu.Lock()
	w.pending[path] = at
	w.mu.Unlock()
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	delete(w.seen, path)
	w.mu.Unlock()
}

// settled returns pending paths that have been quiet for the debounce.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, changed := range w.pending {
		if now.Sub(changed) >= w.cfg.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}

// handle uploads path if it is still eligible. ok is false when nothing
// worth reporting happened (vanished file, directory, duplicate).
func (w *Watcher) handle(ctx context.Context, path string) (Event, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Event{}, false
	}

	w.mu.Lock()
	prev, dup := w.seen[path]
	w.mu.Unlock()
	if dup && prev.Equal(info.ModTime()) {
		return Event{}, false
	}

	if reason := w.skipReason(info); reason != "" {
		w.log.Info("skipping file", zap.String("path", path), zap.String("reason", reason))
		return Event{Path: path, Skipped: reason}, true
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return Event{Path: path, Err: err}, true
	}

	res := w.uploader.UploadFile(ctx, path)
	if !res.OK() {
		w.log.Warn("upload failed", zap.String("path", path), zap.Error(res.Err))
		return Event{Path: path, Err: res.Err, AuthExpired: res.AuthExpired}, true
	}

	w.mu.Lock()
	w.seen[path] = info.ModTime()
	w.mu.Unlock()

	w.log.Info("uploaded", zap.String("path", path), zap.String("document_id", res.Value.ID))
	return Event{Path: path, Document: res.Value}, true
}

func (w *Watcher) skipReason(info os.FileInfo) string {
	if info.Size() == 0 {
		return "empty file"
	}
	if info.Size() > w.cfg.MaxFileSize {
		return fmt.Sprintf("larger than %d bytes", w.cfg.MaxFileSize)
	}
	return ""
}
