// Package session persists the signed-in user's token and role between
// console runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mastera/partnerdesk/internal/fileutil"
)

// FileName is the session file inside the partnerdesk home directory.
const FileName = "session.json"

// ErrNoSession is returned when no user is signed in.
var ErrNoSession = errors.New("not signed in (run 'partnerdesk login')")

// Session is one signed-in user.
type Session struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager reads and writes the session file.
type Manager struct {
	dir string
}

// NewManager returns a manager storing its file in dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Path returns the session file path.
func (m *Manager) Path() string {
	return filepath.Join(m.dir, FileName)
}

// Load returns the stored session, or ErrNoSession when there is none.
func (m *Manager) Load() (*Session, error) {
	data, err := os.ReadFile(m.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", m.Path(), err)
	}
	if s.Token == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

// Save writes s, readable only by the current user.
func (m *Manager) Save(s Session) error {
	if s.Token == "" {
		return errors.New("session token is empty")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if err := fileutil.MkdirPrivate(m.dir); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := fileutil.WritePrivate(m.Path(), data); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing when signed out is not an
// error.
func (m *Manager) Clear() error {
	err := os.Remove(m.Path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether a usable session is stored.
func (m *Manager) IsAuthenticated() bool {
	_, err := m.Load()
	return err == nil
}

// Token returns the stored token, or "".
func (m *Manager) Token() string {
	s, err := m.Load()
	if err != nil {
		return ""
	}
	return s.Token
}

// Role returns the stored role, or "".
func (m *Manager) Role() string {
	s, err := m.Load()
	if err != nil {
		return ""
	}
	return s.Role
}

// CanUpload reports whether role is one of allowed. Comparison ignores case.
// An empty allowed list permits every signed-in role.
func CanUpload(role string, allowed []string) bool {
	if len(allowed) == 0 {
		return role != ""
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), role) {
			return true
		}
	}
	return false
}
