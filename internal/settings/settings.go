// Package settings holds the mutable user state that survives restarts:
// credentials, game directory, close reason. One explicit struct, persisted
// as JSON, with observer callbacks for change notification. The sync worker
// is the only writer; other goroutines may read snapshots via the getters.
package settings

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/addonsync/internal/common"
	"github.com/dmitrijs2005/addonsync/internal/cryptox"
)

const credentialSalt = "addonsync.credentials"

// Keys passed to observers when the corresponding value changes.
const (
	KeyEmail       = "email"
	KeyPassword    = "password"
	KeyGameDir     = "game_dir"
	KeyCloseReason = "close_reason"
)

type persisted struct {
	SystemID       string `json:"system_id"`
	Email          string `json:"email"`
	PasswordSealed string `json:"password_sealed,omitempty"`
	GameDir        string `json:"game_dir"`
	CloseReason    string `json:"close_reason"`
}

// Settings is safe for concurrent reads; writes go through the setters,
// each of which persists and then notifies observers.
type Settings struct {
	mu        sync.Mutex
	path      string
	data      persisted
	observers []func(key string)
}

// Load reads the settings file at path, creating it (with a fresh system ID)
// when missing or unreadable.
func Load(path string) (*Settings, error) {
	s := &Settings{path: path}
	raw, err := os.ReadFile(path)
	if err == nil {
		_ = json.Unmarshal(raw, &s.data)
	}
	if s.data.SystemID == "" {
		s.data.SystemID = generateSystemID()
	}
	if s.data.CloseReason == "" {
		s.data.CloseReason = common.CloseReasonUnknown
	}
	if err := s.save(); err != nil {
		return nil, err
	}
	return s, nil
}

// generateSystemID derives a stable machine identifier from the first
// non-empty MAC address, falling back to a random UUID.
func generateSystemID() string {
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if len(iface.HardwareAddr) > 0 {
				return hex.EncodeToString(iface.HardwareAddr)
			}
		}
	}
	return uuid.NewString()
}

// Subscribe registers an observer invoked (synchronously, on the writer's
// goroutine) with the key of every changed setting.
func (s *Settings) Subscribe(fn func(key string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Settings) notify(key string) {
	for _, fn := range s.observers {
		fn(key)
	}
}

// save persists the current state. Callers hold s.mu.
func (s *Settings) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

func (s *Settings) SystemID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SystemID
}

func (s *Settings) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Email
}

func (s *Settings) SetEmail(email string) error {
	s.mu.Lock()
	s.data.Email = email
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(KeyEmail)
	return nil
}

// PasswordHash returns the stored login hash, unsealing it with a key
// derived from the system ID. Empty when no credentials are stored or the
// blob cannot be opened (e.g. settings copied from another machine).
func (s *Settings) PasswordHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.PasswordSealed == "" {
		return ""
	}
	sealed, err := base64.StdEncoding.DecodeString(s.data.PasswordSealed)
	if err != nil {
		return ""
	}
	plain, err := cryptox.Open(sealed, s.key())
	if err != nil {
		return ""
	}
	return string(plain)
}

// SetPasswordHash seals and stores the login hash. An empty hash clears the
// stored credential.
func (s *Settings) SetPasswordHash(hash string) error {
	s.mu.Lock()
	if hash == "" {
		s.data.PasswordSealed = ""
	} else {
		sealed, err := cryptox.Seal([]byte(hash), s.key())
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.data.PasswordSealed = base64.StdEncoding.EncodeToString(sealed)
	}
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(KeyPassword)
	return nil
}

// ClearCredentials wipes both email and stored password hash, e.g. after
// the server permanently rejects a login.
func (s *Settings) ClearCredentials() error {
	s.mu.Lock()
	s.data.Email = ""
	s.data.PasswordSealed = ""
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(KeyEmail)
	s.notify(KeyPassword)
	return nil
}

func (s *Settings) GameDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GameDir
}

func (s *Settings) SetGameDir(dir string) error {
	s.mu.Lock()
	s.data.GameDir = dir
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(KeyGameDir)
	return nil
}

func (s *Settings) CloseReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CloseReason
}

func (s *Settings) SetCloseReason(reason string) error {
	s.mu.Lock()
	s.data.CloseReason = reason
	err := s.save()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(KeyCloseReason)
	return nil
}

func (s *Settings) key() []byte {
	return cryptox.DeriveKey([]byte(s.data.SystemID), []byte(credentialSalt))
}
