package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/garyjia/po-approval/internal/application/port"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// FileStore keeps the bearer token in a single file readable only by its owner
type FileStore struct {
	fs     afero.Fs
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore returns a store backed by path on fs
func NewFileStore(fs afero.Fs, path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		fs:     fs,
		path:   path,
		logger: logger,
	}
}

// NewOSFileStore returns a store on the real filesystem
func NewOSFileStore(path string, logger *zap.Logger) *FileStore {
	return NewFileStore(afero.NewOsFs(), path, logger)
}

// Get returns the stored token, or "" when none is stored
func (s *FileStore) Get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Set replaces the stored token. The write goes through a temp file so a
// crash never leaves a half-written token behind.
func (s *FileStore) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, []byte(token), fileMode); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	s.logger.Debug("Session token stored", zap.String("path", s.path))
	return nil
}

// Clear removes the stored token. Clearing an empty store is not an error.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	s.logger.Debug("Session token cleared", zap.String("path", s.path))
	return nil
}

var _ port.SessionStore = (*FileStore)(nil)
