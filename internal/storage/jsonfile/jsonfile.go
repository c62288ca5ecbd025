// Package jsonfile provides a single-file JSON implementation of the
// storage.Store interface.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mmynk/partykeeper/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store keeps the whole snapshot in one JSON document on disk.
//
// Writes go to a temporary sibling that is renamed over the target, so
// readers never see a partial file. The previous document is copied to a
// ".backup" sibling before each overwrite.
type Store struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// New creates a Store for the document at path. The parent directory is
// created if it doesn't exist; the file itself is created on first Save.
func New(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("json storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: filepath.Clean(path), logger: logger}, nil
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// BackupPath returns the location of the previous document copy.
func (s *Store) BackupPath() string { return s.path + ".backup" }

func (s *Store) tempPath() string { return s.path + ".tmp" }

// Load reads the document. A missing file yields an empty snapshot.
func (s *Store) Load(ctx context.Context) (*storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return storage.NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	snap, err := storage.DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	return snap, nil
}

// Save writes snap atomically, keeping a backup of the previous document.
func (s *Store) Save(ctx context.Context, snap *storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := storage.EncodeDocument(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backup(); err != nil {
		// Best-effort; never blocks the save.
		s.logger.Warn("Party data backup failed", "path", s.BackupPath(), "error", err)
	}

	tmp := s.tempPath()
	if err := writeFileSync(tmp, data); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op; the store holds no open handles between calls.
func (s *Store) Close() error {
	return nil
}

func (s *Store) backup() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.WriteFile(s.BackupPath(), data, 0o644)
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
