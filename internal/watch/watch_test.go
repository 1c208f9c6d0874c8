// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docchat/internal/api"
	"github.com/jeranaias/docchat/internal/model"
)

type fakeUploader struct {
	mu    sync.Mutex
	paths []string
	fail  error
}

func (f *fakeUploader) UploadFile(ctx context.Context, path string) api.Result[model.Document] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	if f.fail != nil {
		return api.Fail[model.Document](f.fail)
	}
	return api.Ok(model.Document{ID: "doc-" + filepath.Base(path), Filename: filepath.Base(path)})
}

func (f *fakeUploader) uploaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func newTestWatcher(t *testing.T, up Uploader) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := New(Config{Dir: dir, Debounce: 20 * time.Millisecond, UploadsPerSec: 100, MaxFileSize: 64}, up, nil)
	require.NoError(t, err)
	return w, dir
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestNew_RejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.txt")
	write(t, path, "x")
	_, err := New(Config{Dir: path}, &fakeUploader{}, nil)
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = New(Config{Dir: filepath.Join(t.TempDir(), "missing")}, &fakeUploader{}, nil)
	assert.Error(t, err)
}

func TestTouch_FiltersExtensions(t *testing.T) {
	w, dir := newTestWatcher(t, &fakeUploader{})
	now := time.Now()

	w.touch(filepath.Join(dir, "plan.PDF"), now)
	w.touch(filepath.Join(dir, "notes.md"), now)
	w.touch(filepath.Join(dir, "setup.exe"), now)

	assert.Empty(t, w.settled(now), "nothing is settled before the debounce")
	assert.Len(t, w.settled(now.Add(time.Second)), 2)
	assert.Empty(t, w.settled(now.Add(2*time.Second)), "settled paths are consumed")
}

func TestHandle_UploadsOncePerVersion(t *testing.T) {
	up := &fakeUploader{}
	w, dir := newTestWatcher(t, up)
	path := filepath.Join(dir, "plan.pdf")
	write(t, path, "%PDF")

	ev, ok := w.handle(context.Background(), path)
	require.True(t, ok)
	assert.True(t, ev.Uploaded())
	assert.Equal(t, "doc-plan.pdf", ev.Document.ID)

	_, ok = w.handle(context.Background(), path)
	assert.False(t, ok, "unchanged file is not re-uploaded")

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	_, ok = w.handle(context.Background(), path)
	assert.True(t, ok, "a rewritten file is uploaded again")
	assert.Len(t, up.uploaded(), 2)
}

func TestHandle_Skips(t *testing.T) {
	up := &fakeUploader{}
	w, dir := newTestWatcher(t, up)

	empty := filepath.Join(dir, "empty.txt")
	write(t, empty, "")
	ev, ok := w.handle(context.Background(), empty)
	require.True(t, ok)
	assert.Equal(t, "empty file", ev.Skipped)

	big := filepath.Join(dir, "big.txt")
	write(t, big, string(make([]byte, 100)))
	ev, ok = w.handle(context.Background(), big)
	require.True(t, ok)
	assert.Contains(t, ev.Skipped, "larger than")

	_, ok = w.handle(context.Background(), filepath.Join(dir, "gone.txt"))
	assert.False(t, ok)

	assert.Empty(t, up.uploaded())
}

func TestHandle_UploadFailure(t *testing.T) {
	up := &fakeUploader{fail: &api.Error{Status: 401}}
	w, dir := newTestWatcher(t, up)
	path := filepath.Join(dir, "a.txt")
	write(t, path, "x")

	ev, ok := w.handle(context.Background(), path)
	require.True(t, ok)
	assert.False(t, ev.Uploaded())
	assert.True(t, ev.AuthExpired)

	up.mu.Lock()
	up.fail = nil
	up.mu.Unlock()
	ev, _ = w.handle(context.Background(), path)
	assert.True(t, ev.Uploaded(), "failed uploads are retried on the next change")
}

func TestRun_UploadsNewFile(t *testing.T) {
	up := &fakeUploader{}
	w, dir := newTestWatcher(t, up)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 4)
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx, events) }()

	// Give the watcher a moment to register the directory
	time.Sleep(50 * time.Millisecond)
	write(t, filepath.Join(dir, "ignored.bin"), "x")
	write(t, filepath.Join(dir, "report.txt"), "quarterly numbers")

	select {
	case ev := <-events:
		assert.True(t, ev.Uploaded())
		assert.Equal(t, "report.txt", filepath.Base(ev.Path))
	case <-time.After(5 * time.Second):
		t.Fatal("no upload event")
	}

	cancel()
	require.NoError(t, <-errc)
	_, open := <-events
	assert.False(t, open, "events is closed when Run returns")
}

func TestEvent_Uploaded(t *testing.T) {
	assert.True(t, Event{}.Uploaded())
	assert.False(t, Event{Skipped: "x"}.Uploaded())
	assert.False(t, Event{Err: errors.New("x")}.Uploaded())
}
