package theme

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

//settle time after the last write before the theme is reloaded
const watchDebounce = 100 * time.Millisecond

//Watch calls fn with a freshly parsed theme every time the file at path
//is written or replaced, until ctx is done. The directory is watched so
//editors that save by rename are followed. Parse errors are passed to fn.
func Watch(ctx context.Context, path string, opts Options, fn func(*Theme, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(watchDebounce)
			reload = timer.C
		case <-reload:
			timer, reload = nil, nil
			fn(ParseFile(abs, opts))
		}
	}
}
