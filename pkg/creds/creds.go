// Package creds persists connection credentials under an explicit
// remember-me policy and decides whether a stored record qualifies for
// automatic reconnection at startup.
package creds

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/obsdeck/obsdeck/pkg/deckdir"
	"gopkg.in/yaml.v3"
)

// Record is the persisted credential set for one endpoint.
type Record struct {
	Address string `yaml:"address"`
	Secret  string `yaml:"secret"`
	// Remember is the policy flag: the record is only written to disk when
	// it is set, and auto-connect only considers remembered records.
	Remember bool `yaml:"remember"`
	// BypassInsecureWarning opts into auto-connecting to a non-local
	// insecure endpoint.
	BypassInsecureWarning bool `yaml:"bypass_insecure_warning,omitempty"`
}

// Store reads and writes the credential record inside a deck directory.
type Store struct {
	dir deckdir.Dir
}

// NewStore creates a Store over the given directory.
func NewStore(dir deckdir.Dir) *Store {
	return &Store{dir: dir}
}

// Save persists the record when its Remember flag is set; otherwise any
// previously stored record is cleared. The file is written owner-only.
func (s *Store) Save(rec Record) error {
	if !rec.Remember {
		return s.Clear()
	}

	if err := s.dir.Ensure(); err != nil {
		return fmt.Errorf("creds: %w", err)
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("creds: marshal record: %w", err)
	}

	if err := os.WriteFile(s.dir.CredentialsPath(), data, 0o600); err != nil {
		return fmt.Errorf("creds: write record: %w", err)
	}

	return nil
}

// Load returns the stored record. The second result is false when no record
// exists. A corrupt file is an error, not a silent miss.
func (s *Store) Load() (Record, bool, error) {
	data, err := os.ReadFile(s.dir.CredentialsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("creds: read record: %w", err)
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("creds: parse record: %w", err)
	}

	return rec, true, nil
}

// Clear removes the stored record. Missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.dir.CredentialsPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("creds: clear record: %w", err)
	}
	return nil
}

// AutoConnectAllowed reports whether the record qualifies for automatic
// connection at startup: it must be remembered, and an insecure (ws://)
// address pointing at a non-local host is refused unless the bypass flag
// was explicitly set.
func AutoConnectAllowed(rec Record) bool {
	if !rec.Remember || rec.Address == "" {
		return false
	}
	if IsSecureAddress(rec.Address) || IsLocalAddress(rec.Address) {
		return true
	}
	return rec.BypassInsecureWarning
}

// IsSecureAddress reports whether the address uses the secure scheme.
// Addresses without a scheme are treated as insecure ws://.
func IsSecureAddress(address string) bool {
	return strings.HasPrefix(address, "wss://") || strings.HasPrefix(address, "https://")
}

// IsLocalAddress reports whether the address points at the local machine.
func IsLocalAddress(address string) bool {
	host := hostOf(address)
	if host == "" {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// hostOf extracts the host from an address that may omit scheme and port.
func hostOf(address string) string {
	addr := strings.TrimSpace(address)
	if addr == "" {
		return ""
	}
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
