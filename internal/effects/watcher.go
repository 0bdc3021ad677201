package effects

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads patterns as files in the directory change, until ctx is done.
func (p *Patterns) Watch(ctx context.Context) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create patterns directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(p.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", p.dir, err)
	}
	p.log.WithField("dir", p.dir).Info("Watching patterns directory")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			p.log.WithError(err).Warn("Pattern watcher error")
		}
	}
}

func (p *Patterns) handleEvent(ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	if filepath.Ext(name) != patternExt {
		return
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		p.Unload(name)
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if err := p.Load(name); err != nil {
			p.log.WithError(err).WithField("file", name).Warn("Failed to reload pattern")
		}
	}
}
