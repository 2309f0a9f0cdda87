// Package launchcfg persists per-project launch configuration: the mapping
// from a logical run configuration name to the target identity it resolved
// to. Persisting an ambiguous choice avoids re-prompting on every run without
// overwriting an explicit unambiguous choice.
package launchcfg

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

const (
	configDirName  = ".cordova-dbg"
	configFileName = "launch.json"
)

type fileContent struct {
	Targets map[string]string `json:"targets"`
}

// Store is a file-backed launch configuration record.
type Store struct {
	path string
	log  logr.Logger

	mu      sync.Mutex
	targets map[string]string
}

func NewStore(projectRoot string, log logr.Logger) *Store {
	s := &Store{
		path:    filepath.Join(projectRoot, configDirName, configFileName),
		log:     log.WithName("launchcfg"),
		targets: map[string]string{},
	}
	if err := s.load(); err != nil {
		// A missing or unreadable file means "no saved configuration";
		// the store will be created on first write.
		s.log.V(1).Info("no usable launch configuration file", "path", s.path, "reason", err.Error())
	}
	return s
}

// Target returns the persisted target identity for a configuration name.
func (s *Store) Target(configName string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, found := s.targets[configName]
	return id, found
}

// SetTarget records the resolved target identity for a configuration name
// and persists the store.
func (s *Store) SetTarget(configName string, targetID string) error {
	s.mu.Lock()
	s.targets[configName] = targetID
	data, err := json.MarshalIndent(fileContent{Targets: s.targets}, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Watch reloads the store when the configuration file changes on disk,
// until ctx is cancelled. Useful when the file is edited while a long
// debugging session is active.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// The configuration directory may not exist yet on a fresh project; the
	// watch is on the directory so file creation is observed too.
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		_ = watcher.Close()
		return err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
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
				if event.Name != s.path || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if err := s.load(); err != nil {
					s.log.V(1).Info("could not reload launch configuration", "reason", err.Error())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.V(1).Info("launch configuration watch error", "reason", err.Error())
			}
		}
	}()

	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err != nil {
		return err
	}

	var content fileContent
	if err := json.Unmarshal(data, &content); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if content.Targets != nil {
		s.targets = content.Targets
	}
	return nil
}
