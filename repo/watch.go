package repo

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rjeczalik/notify"

	"github.com/bobg/treesync/files"
)

// Watch builds the repository,
// then rebuilds it whenever files beneath the root change,
// until ctx is canceled.
// Events are collected until none has arrived for the settle duration,
// so a burst of changes causes one build.
// Changes to the repository's own metadata
// (the index dir and sync artifacts)
// are ignored.
//
// A failed rebuild is logged and does not stop the watch,
// since the next build reconverges.
func (r *Repository) Watch(ctx context.Context, settle time.Duration) error {
	if _, err := r.Build(ctx); err != nil {
		return errors.Wrap(err, "initial build")
	}

	events := make(chan notify.EventInfo, 100)
	err := notify.Watch(r.root+"/...", events, notify.All)
	if err != nil {
		return errors.Wrapf(err, "watching %s/...", r.root)
	}
	defer notify.Stop(events)

	var (
		timer   = time.NewTimer(settle)
		pending bool
	)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("context canceled, exiting watcher", "root", r.root)
			return nil

		case ev := <-events:
			if !r.relevant(ev.Path()) {
				continue
			}
			r.logger.Debug("change", "path", ev.Path(), "event", ev.Event())
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(settle)
			pending = true

		case <-timer.C:
			pending = false
			if _, err := r.Build(ctx); err != nil {
				r.logger.Error("rebuilding", "root", r.root, "err", err)
			}
		}
	}
}

// relevant tells whether a change to path should trigger a build.
// It excludes what Build's enumeration excludes:
// anything in a directory excluded by the index dir token,
// and sync artifacts.
func (r *Repository) relevant(path string) bool {
	rel, err := filepath.Rel(r.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	if strings.HasSuffix(rel, r.conf.SyncSuffix) {
		return false
	}
	excluded := []string{r.conf.IndexDir}
	if dir := filepath.Dir(rel); dir != "." && files.ExcludedDir(string(filepath.Separator)+dir, excluded) {
		return false
	}
	if rel != "." && isDir(path) && files.ExcludedDir(string(filepath.Separator)+rel, excluded) {
		return false
	}
	return true
}
