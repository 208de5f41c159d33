package policy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// FileSource loads policies from a directory of YAML files (one policy
// per file) into a MemoryStore and hot-reloads the full set whenever a
// file changes. A file that fails validation is skipped with a warning;
// the previously loaded set stays in effect for that file.
type FileSource struct {
	dir     string
	store   *MemoryStore
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// NewFileSource loads the directory and, when watch is true, starts a
// watcher that reloads on create/write/remove events.
func NewFileSource(dir string, watch bool) (*FileSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat policy dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("policy path %q is not a directory", dir)
	}

	s := &FileSource{
		dir:    dir,
		store:  NewMemoryStore(),
		logger: slog.Default().With("component", "policy.source"),
	}
	if err := s.reload(); err != nil {
		return nil, err
	}

	if watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create policy watcher: %w", err)
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch policy dir %q: %w", dir, err)
		}
		s.watcher = watcher
		go s.watchLoop()
	}

	return s, nil
}

// Store returns the live policy store backed by this source.
func (s *FileSource) Store() Store {
	return s.store
}

// ListEnabled implements Store by delegating to the backing store.
func (s *FileSource) ListEnabled(ctx context.Context, orgID string) ([]*Policy, error) {
	return s.store.ListEnabled(ctx, orgID)
}

// Get implements Store by delegating to the backing store.
func (s *FileSource) Get(ctx context.Context, id string) (*Policy, error) {
	return s.store.Get(ctx, id)
}

// Upsert is rejected: file-backed policies change on disk.
func (s *FileSource) Upsert(ctx context.Context, p *Policy) error {
	return fmt.Errorf("file-backed policy store is read-only")
}

// Disable is rejected: file-backed policies change on disk.
func (s *FileSource) Disable(ctx context.Context, id string) error {
	return fmt.Errorf("file-backed policy store is read-only")
}

// Close stops the watcher, if any.
func (s *FileSource) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// reload re-reads every policy file and atomically replaces the set.
func (s *FileSource) reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read policy dir %q: %w", s.dir, err)
	}

	var policies []*Policy
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to read policy file, skipping", "path", path, "error", err)
			continue
		}

		p, err := ParsePolicy(data)
		if err != nil {
			s.logger.Warn("invalid policy file, skipping", "path", path, "error", err)
			continue
		}
		if p.ID == "" {
			p.ID = strings.TrimSuffix(entry.Name(), ext)
		}
		policies = append(policies, p)
	}

	s.store.ReplaceAll(policies)
	s.logger.Info("loaded policies", "dir", s.dir, "policy_count", len(policies))
	return nil
}

func (s *FileSource) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.Debug("policy dir changed, reloading", "event", event.String())
			if err := s.reload(); err != nil {
				s.logger.Error("policy reload failed", "error", err)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("policy watcher error", "error", err)
		}
	}
}
