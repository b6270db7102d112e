package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/iliyamo/miboda/internal/gateway"
)

// Storage persists the current session. Load returns nil, nil when nothing
// is stored.
type Storage interface {
	Load() (*gateway.Session, error)
	Save(*gateway.Session) error
	Clear() error
}

// MemoryStorage keeps the session for the life of the process.
type MemoryStorage struct {
	mu   sync.Mutex
	sess *gateway.Session
}

func (m *MemoryStorage) Load() (*gateway.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess, nil
}

func (m *MemoryStorage) Save(s *gateway.Session) error {
	m.mu.Lock()
	m.sess = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Clear() error { return m.Save(nil) }

// FileStorage writes the session as JSON to Path, readable by the owner only.
type FileStorage struct {
	Path string
}

func (f FileStorage) Load() (*gateway.Session, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s gateway.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", f.Path, err)
	}
	if s.AccessToken == "" {
		return nil, nil
	}
	return &s, nil
}

func (f FileStorage) Save(s *gateway.Session) error {
	if s == nil {
		return f.Clear()
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, f.Path)
}

func (f FileStorage) Clear() error {
	err := os.Remove(f.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
