package persona

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// JSONStore keeps every profile in one JSON object keyed by persona id, the
// personas_meta.json layout. The whole file is read once at open.
type JSONStore struct {
	path string

	mu       sync.RWMutex
	profiles map[string]*Profile
}

// OpenJSON reads path. A missing file opens an empty store.
func OpenJSON(path string) (*JSONStore, error) {
	s := &JSONStore{path: path, profiles: map[string]*Profile{}}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	var raw map[string]*Profile
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("persona: decode %s: %w", path, err)
	}
	for id, p := range raw {
		if p == nil {
			continue
		}
		p.ID = NormalizeID(id)
		s.profiles[p.ID] = p
	}
	return s, nil
}

func (s *JSONStore) Load(_ context.Context, id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[NormalizeID(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

// Put adds or replaces a profile and rewrites the file.
func (s *JSONStore) Put(_ context.Context, p *Profile) error {
	cp := *p
	cp.ID = NormalizeID(p.ID)
	if cp.ID == "" {
		return errors.New("persona: empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[cp.ID] = &cp
	return s.flush()
}

func (s *JSONStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s.profiles, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
