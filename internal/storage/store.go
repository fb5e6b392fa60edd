// Package storage is the flat on-disk download store. Filenames are the only
// identity; size and modification time are read from the filesystem at
// listing time, there is no index.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo describes one stored file for the dashboard listing.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// ErrInvalidName marks names that would escape the download root.
var ErrInvalidName = fmt.Errorf("invalid filename")

type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create downloads dir: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve downloads dir: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute download directory.
func (s *Store) Root() string {
	return s.root
}

// Resolve maps a client-supplied name to a path inside the root, rejecting
// anything that traverses out of it.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", ErrInvalidName
	}
	path := filepath.Join(s.root, name)
	if filepath.Dir(path) != s.root {
		return "", ErrInvalidName
	}
	return path, nil
}

// UniquePath computes a collision-free save path for name. When the target
// already exists the file is renamed to "<stem>_<tag><suffix>"; the existing
// file is never touched. Returns the path and the final basename.
func (s *Store) UniquePath(name, tag string) (string, string, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return "", "", err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path, name, nil
	}
	suffix := filepath.Ext(name)
	stem := strings.TrimSuffix(name, suffix)
	renamed := fmt.Sprintf("%s_%s%s", stem, tag, suffix)
	path, err = s.Resolve(renamed)
	if err != nil {
		return "", "", err
	}
	return path, renamed, nil
}

// Create opens the target for writing, truncating any partial previous
// attempt at the same path. Writes are not atomic: a crash mid-transfer can
// leave a partial file at the final path.
func (s *Store) Create(name string) (*os.File, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Create(path)
}

// Exists reports whether a stored file is present.
func (s *Store) Exists(name string) bool {
	path, err := s.Resolve(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Stat returns the on-disk info for one stored file.
func (s *Store) Stat(name string) (FileInfo, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	if !info.Mode().IsRegular() {
		return FileInfo{}, os.ErrNotExist
	}
	return FileInfo{Name: name, Size: info.Size(), Modified: info.ModTime()}, nil
}

// Open opens a stored file for reading.
func (s *Store) Open(name string) (*os.File, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes a stored file.
func (s *Store) Delete(name string) error {
	path, err := s.Resolve(name)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return os.ErrNotExist
	}
	return os.Remove(path)
}

// List returns every stored file sorted by name.
func (s *Store) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read downloads dir: %w", err)
	}
	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
