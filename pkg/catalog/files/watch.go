package files

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/canopy-data/canopy/pkg/logger"
)

// watch applies filesystem events to the index until the watcher is closed.
func (s *state) watch() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.apply(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("directory watch error", "error", err)
		}
	}
}

func (s *state) apply(ev fsnotify.Event) {
	rel, err := filepath.Rel(s.root, ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)
	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	name := path.Base(rel)

	switch {
	case ev.Has(fsnotify.Create):
		s.applyCreate(dir, name, rel)
	case ev.Has(fsnotify.Write):
		s.cache.Delete(rel)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		s.remove(dir, name)
	}
}

func (s *state) applyCreate(dir, name, rel string) {
	info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		// Created and removed before we could look; the Remove event
		// will be a no-op too.
		return
	}
	if s.skip(name, info.IsDir()) {
		return
	}
	s.insert(dir, name, info.IsDir())
	if info.IsDir() {
		if err := s.scan(rel); err != nil {
			logger.Warn("indexing new directory", "path", rel, "error", err)
		}
	}
	s.cache.Delete(rel)
}
