package trust

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestLoadNotExist(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "known_hubs.json"))
	hubs, err := s.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hubs == nil || len(hubs) != 0 {
		t.Fatalf("expected empty non-nil map, got %+v", hubs)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hubs.json")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	hubs, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hubs) != 0 {
		t.Fatalf("expected empty map, got %+v", hubs)
	}
}

func TestLoadCorruptFilePropagates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hubs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(path).Load(); err == nil {
		t.Fatal("expected parse error for corrupt file")
	}
}

func TestLoadReadErrorPropagates(t *testing.T) {
	// A directory at the file path is a read failure other than "absent".
	path := filepath.Join(t.TempDir(), "known_hubs.json")
	if err := os.Mkdir(path, 0o700); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(path).Load(); err == nil {
		t.Fatal("expected read error")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "known_hubs.json")
	s := NewStore(path)

	original := map[string]Record{
		"192.168.0.1:9495": {Hostname: "192.168.0.1:9495", Fingerprint: "AA:BB"},
		"10.0.0.7:9495":    {Hostname: "10.0.0.7:9495", Fingerprint: "CC:DD"},
	}
	if err := s.Save(original); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file should exist: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file should be gone, stat err = %v", err)
	}

	loaded, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded))
	}
	for k, want := range original {
		if loaded[k] != want {
			t.Errorf("record %s: got %+v, want %+v", k, loaded[k], want)
		}
	}
}

func TestReadsExistingFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hubs.json")
	raw := `{"192.168.0.1:9495":{"hostname":"192.168.0.1:9495","fingerprint":"00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00"}}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatal(err)
	}
	hubs, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rec, ok := hubs["192.168.0.1:9495"]
	if !ok {
		t.Fatal("expected record")
	}
	if rec.Fingerprint != "00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00:00" {
		t.Errorf("unexpected fingerprint %q", rec.Fingerprint)
	}
}

func TestSaveReplacesWholeMapping(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "known_hubs.json"))
	if err := s.Save(map[string]Record{
		"a:1": {Hostname: "a:1", Fingerprint: "F1"},
		"b:2": {Hostname: "b:2", Fingerprint: "X"},
	}); err != nil {
		t.Fatal(err)
	}

	hubs, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	hubs["a:1"] = Record{Hostname: "a:1", Fingerprint: "F2"}
	if err := s.Save(hubs); err != nil {
		t.Fatal(err)
	}

	after, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 2 {
		t.Fatalf("expected 2 records, got %+v", after)
	}
	if after["a:1"].Fingerprint != "F2" {
		t.Errorf("expected overwrite, got %+v", after["a:1"])
	}
	if after["b:2"].Fingerprint != "X" {
		t.Errorf("unrelated entry changed: %+v", after["b:2"])
	}
	if _, err := os.Stat(s.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hubs.json")
	s := NewStore(path)
	if err := s.Save(map[string]Record{
		"a:1": {Hostname: "a:1", Fingerprint: "F1"},
		"b:2": {Hostname: "b:2", Fingerprint: "F2"},
	}); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Delete("a:1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !removed {
		t.Error("expected removal")
	}

	removed, err = s.Delete("missing:1")
	if err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if removed {
		t.Error("expected no removal for unknown authority")
	}

	hubs, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := hubs["a:1"]; ok {
		t.Error("a:1 should be gone")
	}
	if hubs["b:2"].Fingerprint != "F2" {
		t.Error("b:2 should survive")
	}
}

func TestDeleteMissingFileDoesNotCreateIt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hubs.json")
	removed, err := NewStore(path).Delete("a:1")
	if err != nil || removed {
		t.Fatalf("Delete = %v, %v", removed, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file should not exist, stat err = %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	cert := selfSigned(t)
	fp := Fingerprint(cert)

	if !regexp.MustCompile(`^([0-9A-F]{2}:){19}[0-9A-F]{2}$`).MatchString(fp) {
		t.Fatalf("unexpected fingerprint format %q", fp)
	}
	if Fingerprint(cert) != fp {
		t.Error("fingerprint should be deterministic")
	}
	if other := Fingerprint(selfSigned(t)); other == fp {
		t.Error("different certificates should have different fingerprints")
	}
}

func TestFormatFingerprint(t *testing.T) {
	if got := FormatFingerprint([]byte{0x0a, 0xbc, 0xff}); got != "0A:BC:FF" {
		t.Errorf("got %q", got)
	}
	if got := FormatFingerprint(nil); got != "" {
		t.Errorf("got %q", got)
	}
	if got := FormatFingerprint(make([]byte, 20)); got != strings.TrimSuffix(strings.Repeat("00:", 20), ":") {
		t.Errorf("got %q", got)
	}
}

func selfSigned(t *testing.T) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "hub"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}
	return cert
}
