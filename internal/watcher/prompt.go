package watcher

import (
	"context"
	"time"

	"github.com/dmckenna-gumgum/component-builder/internal/logging"
)

// PromptLoader loads a system prompt override from disk.
type PromptLoader interface {
	LoadSystemPromptFile(path string) error
}

// PromptWatcher reloads the system prompt whenever its file changes.
type PromptWatcher struct {
	files    *FileWatcher
	loader   PromptLoader
	path     string
	onReload func()
	logger   logging.Logger
}

// NewPromptWatcher watches path and feeds it to loader on change. onReload
// may be nil; it runs after every successful reload.
func NewPromptWatcher(path string, loader PromptLoader, debounce time.Duration, onReload func(), logger logging.Logger) (*PromptWatcher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	files, err := NewFileWatcher(debounce, logger)
	if err != nil {
		return nil, err
	}
	if err := files.WatchFile(path); err != nil {
		_ = files.Stop()
		return nil, err
	}

	pw := &PromptWatcher{
		files:    files,
		loader:   loader,
		path:     path,
		onReload: onReload,
		logger:   logger.WithComponent("prompt-watcher"),
	}
	files.AddHandler(pw.handle)

	return pw, nil
}

// Start begins watching until ctx is done.
func (pw *PromptWatcher) Start(ctx context.Context) error {
	return pw.files.Start(ctx)
}

// Stop releases the underlying watcher.
func (pw *PromptWatcher) Stop() error {
	return pw.files.Stop()
}

func (pw *PromptWatcher) handle(events []ChangeEvent) error {
	ctx := context.Background()

	for _, event := range events {
		if event.Type == EventTypeDeleted || event.Type == EventTypeRenamed {
			// keep the last good prompt until the file comes back
			pw.logger.Warn(ctx, nil, "System prompt file removed, keeping current prompt", "path", pw.path)
			return nil
		}
	}

	if err := pw.loader.LoadSystemPromptFile(pw.path); err != nil {
		return err
	}

	pw.logger.Info(ctx, "System prompt reloaded", "path", pw.path)
	if pw.onReload != nil {
		pw.onReload()
	}
	return nil
}
