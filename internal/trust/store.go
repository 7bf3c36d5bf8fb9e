// Package trust persists the known-hubs cache used for trust-on-first-use
// verification of hub certificates.
//
// The cache is a plain JSON object keyed by hub authority ("ip:port"):
//
//	{"192.168.0.1:9495": {"hostname": "192.168.0.1:9495", "fingerprint": "AB:CD:..."}}
//
// Callers load the whole mapping, change one entry and Save the whole
// mapping back; the file is replaced atomically, so entries for other hubs
// are never lost or half written.
package trust

import (
	"crypto/sha1" //nolint:gosec // fingerprint format shared with existing known_hubs.json files, not a security boundary on its own
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Record is the remembered identity of one hub.
type Record struct {
	Hostname    string `json:"hostname"`
	Fingerprint string `json:"fingerprint"`
}

// Store reads and writes the known-hubs file at a fixed path.
// A Store does no locking; one session owns one access sequence.
type Store struct {
	path string
}

// NewStore creates a Store backed by the file at path. The file is created on
// the first Save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the full mapping. A missing file is an empty mapping; any other
// read or parse failure is returned.
func (s *Store) Load() (map[string]Record, error) {
	data, err := os.ReadFile(filepath.Clean(s.path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]Record), nil
		}
		return nil, fmt.Errorf("read known hubs: %w", err)
	}

	hubs := make(map[string]Record)
	if len(strings.TrimSpace(string(data))) == 0 {
		return hubs, nil
	}
	if err := json.Unmarshal(data, &hubs); err != nil {
		return nil, fmt.Errorf("parse known hubs %s: %w", s.path, err)
	}
	if hubs == nil {
		hubs = make(map[string]Record)
	}
	return hubs, nil
}

// Save atomically replaces the file with hubs, validating the written bytes
// before the rename.
func (s *Store) Save(hubs map[string]Record) error {
	if hubs == nil {
		hubs = make(map[string]Record)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create known hubs directory: %w", err)
	}

	data, err := json.MarshalIndent(hubs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal known hubs: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	check, err := os.ReadFile(tmpPath) //nolint:gosec // G304: temp path derived from the store path
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("read-back temp file: %w", err)
	}
	var verify map[string]Record
	if err := json.Unmarshal(check, &verify); err != nil || len(verify) != len(hubs) {
		_ = os.Remove(tmpPath)
		if err == nil {
			err = fmt.Errorf("wrote %d entries, read back %d", len(hubs), len(verify))
		}
		return fmt.Errorf("round-trip validation failed: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename known hubs file: %w", err)
	}
	return nil
}

// Delete removes the record for authority. It reports whether a record was
// present; the file is not rewritten when nothing changed.
func (s *Store) Delete(authority string) (bool, error) {
	hubs, err := s.Load()
	if err != nil {
		return false, err
	}
	if _, ok := hubs[authority]; !ok {
		return false, nil
	}
	delete(hubs, authority)
	return true, s.Save(hubs)
}

// Fingerprint returns the SHA-1 digest of the certificate's DER encoding as
// uppercase colon-separated hex.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha1.Sum(cert.Raw) //nolint:gosec // see import comment
	return FormatFingerprint(sum[:])
}

// FormatFingerprint renders digest bytes as "AB:CD:EF".
func FormatFingerprint(digest []byte) string {
	h := strings.ToUpper(hex.EncodeToString(digest))
	var b strings.Builder
	b.Grow(len(h) + len(h)/2)
	for i := 0; i < len(h); i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(h[i : i+2])
	}
	return b.String()
}
