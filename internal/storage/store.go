// Package storage keeps uploaded documents and generated reports on an
// afero filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/gosimple/slug"
	"github.com/spf13/afero"
)

var ErrNotFound = errors.New("file not found")

// Store reads and writes files under keys: slash separated paths relative
// to the store root.
type Store struct {
	fs afero.Fs
}

// New wraps fs. Tests pass afero.NewMemMapFs().
func New(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// NewDir stores files below dir on the OS filesystem.
func NewDir(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// FileName turns a user supplied name into a safe "<slug>.<ext>".
func FileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(base))
	stem := slug.Make(strings.TrimSuffix(base, path.Ext(base)))
	if stem == "" {
		stem = "file"
	}
	return stem + ext
}

// Save writes r under key and returns the number of bytes written.
func (s *Store) Save(key string, r io.Reader) (int64, error) {
	key = clean(key)
	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", path.Dir(key), err)
	}
	f, err := s.fs.Create(key)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", key, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(key)
		return 0, fmt.Errorf("write %s: %w", key, err)
	}
	return n, nil
}

// Open returns the file stored under key.
func (s *Store) Open(key string) (afero.File, error) {
	f, err := s.fs.Open(clean(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Remove deletes key; a missing file is not an error.
func (s *Store) Remove(key string) error {
	err := s.fs.Remove(clean(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Store) Exists(key string) bool {
	ok, err := afero.Exists(s.fs, clean(key))
	return err == nil && ok
}

// clean confines key to the store root.
func clean(key string) string {
	return strings.TrimPrefix(path.Clean("/"+key), "/")
}
