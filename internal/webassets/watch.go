package webassets

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/heriman22/blog-main/internal/log"
	"github.com/heriman22/blog-main/internal/xerrors"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// WatcherOptions configures a template directory watcher.
type WatcherOptions struct {
	Dir    string
	Logger log.Logger

	// OnChange runs on the watcher goroutine once per settled burst of
	// changes to template files.
	OnChange func(ctx context.Context)

	Debounce time.Duration
}

// Watcher calls OnChange when a template file under Dir changes.
type Watcher struct {
	dir      string
	logger   log.Logger
	onChange func(ctx context.Context)
	debounce time.Duration

	changes int64
}

func NewWatcher(opts WatcherOptions) *Watcher {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      opts.Dir,
		logger:   opts.Logger,
		onChange: opts.OnChange,
		debounce: opts.Debounce,
	}
}

// Run watches until ctx is cancelled.
// Intended to be launched as: go watcher.Run(ctx)
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return xerrors.Wrap(err, "create fsnotify watcher")
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return xerrors.Wrapf(err, "watch %s", w.dir)
	}
	w.logger.Info(ctx, "template watcher starting", "dir", w.dir, "debounce", w.debounce.String())

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "template watcher stopping", "reason", ctx.Err(), "changes", w.changes)
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug(ctx, "template watcher: change detected", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(ctx, err, "template watcher: fsnotify error")

		case <-timer.C:
			w.changes++
			w.logger.Info(ctx, "template watcher: reloading templates", "dir", w.dir)
			if w.onChange != nil {
				w.onChange(ctx)
			}
		}
	}
}

// relevant reports whether ev touches a visible template file. Chmod alone
// does not change content.
func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return filepath.Ext(base) == ".html"
}
