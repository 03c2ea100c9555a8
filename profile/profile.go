// Package profile manages stored VPN connection profiles: named
// references to imported configuration files, persisted as YAML in the
// user's config directory.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yllada/tvbridge/common"
	"github.com/yllada/tvbridge/vpn"
)

// Profile represents a stored VPN connection profile.
type Profile struct {
	// ID is a unique identifier for the profile.
	ID string `json:"id" yaml:"id"`
	// Name is a human-readable name for the profile.
	Name string `json:"name" yaml:"name"`
	// Kind is the detected protocol family of the configuration.
	Kind vpn.Kind `json:"kind" yaml:"kind"`
	// ConfigPath is the path to the imported configuration file.
	ConfigPath string `json:"config_path" yaml:"config_path"`
	// Endpoint is the remote server recorded at import time.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Username is the optional username for OpenVPN authentication.
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	// SavePassword indicates whether the password is kept in the keyring.
	SavePassword bool `json:"save_password" yaml:"save_password"`
	// AutoConnect indicates whether to connect automatically on startup.
	AutoConnect bool `json:"auto_connect" yaml:"auto_connect"`
	// Created is when the profile was imported.
	Created time.Time `json:"created" yaml:"created"`
	// LastUsed is when the profile last connected.
	LastUsed time.Time `json:"last_used,omitempty" yaml:"last_used,omitempty"`
}

// TunnelName returns the tunnel identifier this profile connects as.
func (p *Profile) TunnelName() string {
	return vpn.TunnelName(p.Kind, p.ConfigPath)
}

// Validate checks that the profile has all required fields.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.ConfigPath == "" {
		return fmt.Errorf("config path is required")
	}
	return nil
}

// Store manages profiles persisted on disk. It is safe for concurrent
// use; the REST handlers share one instance.
type Store struct {
	mu       sync.RWMutex
	profiles []*Profile
	dir      string
	file     string
}

// NewStore creates a Store rooted at the application config directory
// and loads existing profiles.
func NewStore() (*Store, error) {
	dir, err := common.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(dir)
}

// NewStoreAt creates a Store rooted at an explicit directory. Tests use
// this with a temporary directory.
func NewStoreAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, common.WrapError(err, "failed to create profile directory")
	}

	s := &Store{
		profiles: make([]*Profile, 0),
		dir:      dir,
		file:     filepath.Join(dir, common.ProfilesFileName),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the profiles file. A missing file means no profiles yet.
func (s *Store) load() error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return common.WrapError(err, "failed to read profiles file")
	}
	if err := yaml.Unmarshal(data, &s.profiles); err != nil {
		return common.WrapError(err, "failed to parse profiles file")
	}
	return nil
}

// save persists all profiles. Callers must hold the write lock.
func (s *Store) save() error {
	data, err := yaml.Marshal(&s.profiles)
	if err != nil {
		return common.WrapError(err, "failed to serialize profiles")
	}
	if err := os.WriteFile(s.file, data, 0600); err != nil {
		return common.WrapError(err, "failed to write profiles file")
	}
	return nil
}

// Add imports a configuration file as a new profile. The file is parsed
// to classify its kind and must be valid; it is then copied into the
// store's configs directory so the original can be removed by the user.
func (s *Store) Add(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findByName(p.Name) != nil {
		return common.ErrDuplicateName
	}

	data, err := os.ReadFile(p.ConfigPath)
	if err != nil {
		return common.WrapError(err, "failed to read config file")
	}
	parsed := vpn.Parse(string(data))
	if !parsed.Valid {
		return common.WrapError(common.ErrInvalidConfig, parsed.Error)
	}
	p.Kind = parsed.Kind
	p.Endpoint = parsed.Endpoint

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Created = time.Now()

	configsDir := filepath.Join(s.dir, "configs")
	if err := os.MkdirAll(configsDir, 0700); err != nil {
		return common.WrapError(err, "failed to create configs directory")
	}

	destPath := filepath.Join(configsDir, p.ID+configExt(p.Kind))
	if err := os.WriteFile(destPath, data, 0600); err != nil {
		return common.WrapError(err, "failed to copy config file")
	}
	p.ConfigPath = destPath

	s.profiles = append(s.profiles, p)
	return s.save()
}

// Remove removes a profile by ID, deleting its imported config file.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.profiles {
		if p.ID == id {
			if err := os.Remove(p.ConfigPath); err != nil && !os.IsNotExist(err) {
				common.LogWarn("Could not remove config for profile %s: %v", p.Name, err)
			}
			s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
			return s.save()
		}
	}
	return common.ErrProfileNotFound
}

// Get retrieves a profile by ID.
func (s *Store) Get(id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p := s.findByID(id); p != nil {
		return p, nil
	}
	return nil, common.ErrProfileNotFound
}

// GetByName retrieves a profile by name.
func (s *Store) GetByName(name string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p := s.findByName(name); p != nil {
		return p, nil
	}
	return nil, common.ErrProfileNotFound
}

// List returns a snapshot of all profiles.
func (s *Store) List() []*Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Profile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

// Update replaces an existing profile.
func (s *Store) Update(p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.profiles {
		if existing.ID == p.ID {
			s.profiles[i] = p
			return s.save()
		}
	}
	return common.ErrProfileNotFound
}

// MarkUsed updates the LastUsed timestamp for a profile.
func (s *Store) MarkUsed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findByID(id)
	if p == nil {
		return common.ErrProfileNotFound
	}
	p.LastUsed = time.Now()
	return s.save()
}

// findByID returns the profile with the given ID, or nil. Callers must
// hold the lock.
func (s *Store) findByID(id string) *Profile {
	for _, p := range s.profiles {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// findByName returns the profile with the given name, or nil. Callers
// must hold the lock.
func (s *Store) findByName(name string) *Profile {
	for _, p := range s.profiles {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// configExt returns the conventional file extension per kind.
func configExt(kind vpn.Kind) string {
	if kind == vpn.KindOpenVPN {
		return ".ovpn"
	}
	return ".conf"
}
