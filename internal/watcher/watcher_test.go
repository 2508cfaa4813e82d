package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmckenna-gumgum/component-builder/internal/logging"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(99), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)
}

func TestFileWatcherAddPathRejectsTraversal(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.Error(t, watcher.AddPath("../outside"))
	assert.Error(t, watcher.WatchFile(""))
}

func TestPathFilter(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "prompt.md")
	filter := PathFilter(target)

	assert.True(t, filter(target))
	assert.True(t, filter(filepath.Join(dir, ".", "prompt.md")))
	assert.False(t, filter(filepath.Join(dir, "other.md")))
	assert.False(t, filter(filepath.Join(dir, "prompt.md~")))
}

func TestDebouncerGroupsEvents(t *testing.T) {
	d := &Debouncer{
		delay:  30 * time.Millisecond,
		events: make(chan ChangeEvent, 10),
		output: make(chan []ChangeEvent, 10),
	}

	d.addEvent(ChangeEvent{Type: EventTypeCreated, Path: "/a"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "/a"})
	d.addEvent(ChangeEvent{Type: EventTypeModified, Path: "/b"})

	select {
	case batch := <-d.output:
		require.Len(t, batch, 2)
		assert.Equal(t, "/a", batch[0].Path)
		assert.Equal(t, EventTypeModified, batch[0].Type)
		assert.Equal(t, "/b", batch[1].Path)
	case <-time.After(time.Second):
		t.Fatal("debouncer did not flush")
	}

	select {
	case batch := <-d.output:
		t.Fatalf("unexpected second batch %v", batch)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFileWatcherDeliversChanges(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "prompt.md")
	require.NoError(t, os.WriteFile(target, []byte("v1"), 0o644))

	watcher, err := NewFileWatcher(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	var mu sync.Mutex
	var seen []ChangeEvent
	watcher.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, events...)
		return nil
	})
	require.NoError(t, watcher.WatchFile(target))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("v2"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, event := range seen {
		assert.Equal(t, "prompt.md", filepath.Base(event.Path))
	}
}

func TestFileWatcherStopIsIdempotent(t *testing.T) {
	watcher, err := NewFileWatcher(10*time.Millisecond, nil)
	require.NoError(t, err)

	require.NoError(t, watcher.Stop())
	assert.NoError(t, watcher.Stop())
}

type fakeLoader struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeLoader) LoadSystemPromptFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, path)
	return f.err
}

func (f *fakeLoader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestPromptWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "system.md")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o644))

	loader := &fakeLoader{}
	var reloads atomic.Int32
	pw, err := NewPromptWatcher(path, loader, 20*time.Millisecond, func() { reloads.Add(1) }, nil)
	require.NoError(t, err)
	defer pw.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pw.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o644))

	require.Eventually(t, func() bool { return reloads.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, loader.count(), 1)
	assert.Equal(t, path, loader.calls[0])
}

func TestPromptWatcherHandle(t *testing.T) {
	tests := []struct {
		name        string
		events      []ChangeEvent
		loaderErr   error
		wantErr     bool
		wantLoads   int
		wantReloads int32
	}{
		{"modified", []ChangeEvent{{Type: EventTypeModified}}, nil, false, 1, 1},
		{"created", []ChangeEvent{{Type: EventTypeCreated}}, nil, false, 1, 1},
		{"deleted keeps prompt", []ChangeEvent{{Type: EventTypeDeleted}}, nil, false, 0, 0},
		{"renamed keeps prompt", []ChangeEvent{{Type: EventTypeRenamed}}, nil, false, 0, 0},
		{"load failure", []ChangeEvent{{Type: EventTypeModified}}, errors.New("empty"), true, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &fakeLoader{err: tt.loaderErr}
			var reloads atomic.Int32
			pw := &PromptWatcher{
				loader:   loader,
				path:     "/prompts/system.md",
				onReload: func() { reloads.Add(1) },
				logger:   logging.NewNopLogger(),
			}

			err := pw.handle(tt.events)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantLoads, loader.count())
			assert.Equal(t, tt.wantReloads, reloads.Load())
		})
	}
}
