package watch

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"callscreen/internal/blocker"
	"callscreen/internal/config"
)

// Watcher monitors the config file and pushes policy changes into the
// running blocker without a restart.
type Watcher struct {
	cfgPath string
	blk     *blocker.Blocker
}

func New(cfgPath string, blk *blocker.Blocker) *Watcher {
	return &Watcher{cfgPath: cfgPath, blk: blk}
}

func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors replace the file on save, which would
	// drop a watch on the file itself.
	dir := filepath.Dir(w.cfgPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if filepath.Clean(evt.Name) != filepath.Clean(w.cfgPath) {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				policy, err := config.LoadPolicy(w.cfgPath, w.blk.Policy())
				if err != nil {
					log.Printf("policy reload failed: %v", err)
					continue
				}
				w.blk.SetPolicy(policy)
			case err := <-watcher.Errors:
				log.Printf("config watcher error: %v", err)
			}
		}
	}()
	return nil
}
