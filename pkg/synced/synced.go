package synced

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Set records which item ids have already been mirrored.
// Ids are only ever added.
type Set interface {
	Contains(id string) bool
	Insert(id string) error
}

// FileSet is a Set backed by an append-only text file, one id per line.
// Every Insert is flushed to disk before it returns.
type FileSet struct {
	Path string

	mu  sync.RWMutex
	ids map[string]struct{}
	f   *os.File

	// torn is set when the file does not end in a newline, so the next
	// append has to start a fresh line.
	torn bool
}

// OpenFileSet loads the ids stored at path. A missing or empty file is an
// empty set.
func OpenFileSet(path string) (*FileSet, error) {
	s := &FileSet{
		Path: path,
		ids:  make(map[string]struct{}),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSet) load() error {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open synced file %s: %w", s.Path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if id := normalize(scanner.Text()); id != "" {
			s.ids[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read synced file %s: %w", s.Path, err)
	}

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat synced file %s: %w", s.Path, err)
	}
	if size := info.Size(); size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			return fmt.Errorf("failed to read synced file %s: %w", s.Path, err)
		}
		s.torn = last[0] != '\n'
	}
	return nil
}

// normalize is applied to every id before it is looked up or stored.
func normalize(id string) string {
	return strings.TrimSpace(id)
}

func (s *FileSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[normalize(id)]
	return ok
}

func (s *FileSet) Insert(id string) error {
	id = normalize(id)
	if id == "" {
		return errors.New("cannot record empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return nil
	}
	if s.f == nil {
		if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
			return fmt.Errorf("failed to create synced file directory: %w", err)
		}
		f, err := os.OpenFile(s.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("failed to open synced file for append: %w", err)
		}
		s.f = f
	}

	line := id + "\n"
	if s.torn {
		line = "\n" + line
	}
	if _, err := s.f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append %s to synced file: %w", id, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("failed to flush synced file: %w", err)
	}
	s.torn = false
	s.ids[id] = struct{}{}
	return nil
}

// Len returns the number of recorded ids.
func (s *FileSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

func (s *FileSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// MemorySet is a Set that lives only as long as the process.
type MemorySet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewMemorySet(ids ...string) *MemorySet {
	m := &MemorySet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = normalize(id); id != "" {
			m.ids[id] = struct{}{}
		}
	}
	return m
}

func (m *MemorySet) Contains(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[normalize(id)]
	return ok
}

func (m *MemorySet) Insert(id string) error {
	id = normalize(id)
	if id == "" {
		return errors.New("cannot record empty id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[id] = struct{}{}
	return nil
}

func (m *MemorySet) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}
