// Package assets maps media filenames to resource handles for the
// capability-scope builder. Handles live for the whole process; only an
// explicit user-initiated reset releases them.
package assets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"sceneforge/internal/logging"
	"sceneforge/scenekit"
)

var mimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
}

// Store resolves scene asset names to resource handles.
type Store struct {
	dir string
	log *zap.Logger

	mu        sync.RWMutex
	resources map[string]scenekit.Resource
}

// Open scans dir and returns a store over its media files. A missing
// directory yields an empty store rather than an error; assets can arrive
// later via Watch.
func Open(dir string) (*Store, error) {
	s := &Store{
		dir:       dir,
		log:       logging.Named("assets"),
		resources: make(map[string]scenekit.Resource),
	}
	if err := s.rescan(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return s, nil
}

func (s *Store) rescan() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	found := make(map[string]scenekit.Resource)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		mime, ok := mimeByExt[strings.ToLower(filepath.Ext(name))]
		if !ok {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		found[name] = scenekit.Resource{Name: name, Locator: abs, MIME: mime}
	}

	s.mu.Lock()
	s.resources = found
	s.mu.Unlock()
	s.log.Debug("asset scan complete", zap.String("dir", s.dir), zap.Int("count", len(found)))
	return nil
}

// Lookup resolves one asset by filename.
func (s *Store) Lookup(name string) (scenekit.Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.resources[name]
	return res, ok
}

// Names returns the known asset filenames, for prompt context.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.resources))
	for name := range s.resources {
		names = append(names, name)
	}
	return names
}

// Snapshot copies the current filename→resource map for a compilation
// scope. The copy is independent of later store changes.
func (s *Store) Snapshot() map[string]scenekit.Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[string]scenekit.Resource, len(s.resources))
	for name, res := range s.resources {
		snapshot[name] = res
	}
	return snapshot
}

// Reset drops every handle. Only the user triggers this; the pipeline
// itself never releases assets.
func (s *Store) Reset() {
	s.mu.Lock()
	s.resources = make(map[string]scenekit.Resource)
	s.mu.Unlock()
	s.log.Info("asset store reset", zap.String("dir", s.dir))
}

// Watch keeps the map current as files appear and disappear, until ctx is
// cancelled. Rescanning on every relevant event keeps the logic simple;
// asset directories are small.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					if err := s.rescan(); err != nil {
						s.log.Warn("asset rescan failed", zap.Error(err))
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("asset watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
