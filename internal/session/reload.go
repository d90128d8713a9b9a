package session

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce collapses the burst of writes an editor makes on save.
const reloadDebounce = 200 * time.Millisecond

// watchList restarts the source whenever the explicit path list changes.
// The parent directory is watched so replace-by-rename saves are seen.
// fsnotify does not follow symlinks, so when the list is a link the
// directory of its target is watched as well.
func (s *Session) watchList(ctx context.Context) error {
	list, err := filepath.Abs(s.cfg.ExplicitPathList)
	if err != nil {
		return err
	}
	names := map[string]bool{list: true}
	dirs := []string{filepath.Dir(list)}
	if target, err := filepath.EvalSymlinks(list); err == nil && target != list {
		names[target] = true
		if dir := filepath.Dir(target); dir != dirs[0] {
			dirs = append(dirs, dir)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return err
		}
	}

	go func() {
		defer w.Close()
		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()

		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !names[filepath.Clean(event.Name)] {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				s.logger.Debugf("Path list event: op=%v", event.Op)
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, s.requestReload)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.WithError(err).Warn("Path list watcher error")
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
