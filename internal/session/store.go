package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store persists the single session token. Implementations hold at most one
// value under a fixed namespace; there is no other durable client state.
type Store interface {
	// Get returns the persisted token and whether one is present.
	Get() (string, bool)
	// Set persists the token, replacing any existing one.
	Set(token string) error
	// Clear removes the persisted token.
	Clear() error
}

// MemoryStore is an in-process Store. It backs tests and the degraded mode
// used when no config directory is available: the token does not survive the
// process, which is the session-less fallback the client tolerates.
type MemoryStore struct {
	mu    sync.Mutex
	token string
	set   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.set
}

func (s *MemoryStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.set = true
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.set = false
	return nil
}

// FileStore keeps the token in a single namespaced file under the user
// config directory.
type FileStore struct {
	path string
}

// sessionFileName is the fixed namespace key for the persisted token.
const sessionFileName = "session"

// NewFileStore resolves the token path under dir (typically
// os.UserConfigDir()/askdb) and creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, sessionFileName)}, nil
}

// DefaultDir returns the standard location for the session file.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("no user config dir: %w", err)
	}
	return filepath.Join(base, "askdb"), nil
}

func (s *FileStore) Get() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	return token, token != ""
}

func (s *FileStore) Set(token string) error {
	if err := os.WriteFile(s.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	return nil
}
