package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != Defaults() {
		t.Errorf("got %+v, want defaults", s)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	s, err := Load(writeSettings(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != Defaults() {
		t.Errorf("got %+v, want defaults", s)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeSettings(t, `
hub_address: 192.168.0.1:9495
connect_timeout: 10s
output: json
`)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.HubAddress != "192.168.0.1:9495" {
		t.Errorf("hub_address = %q", s.HubAddress)
	}
	if s.ConnectTimeout != 10*time.Second {
		t.Errorf("connect_timeout = %s", s.ConnectTimeout)
	}
	if s.RequestTimeout != 5*time.Second {
		t.Errorf("request_timeout = %s, want default", s.RequestTimeout)
	}
	if s.Output != "json" {
		t.Errorf("output = %q", s.Output)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown key", "hub_adress: 1.2.3.4\n", "hub_adress"},
		{"bad duration", "connect_timeout: soon\n", "parse settings"},
		{"negative timeout", "connect_timeout: -1s\n", "connect_timeout"},
		{"zero request timeout", "request_timeout: 0s\n", "request_timeout"},
		{"bad output", "output: yaml\n", "unknown output"},
		{"not a mapping", "- a\n- b\n", "parse settings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(writeSettings(t, tt.content))
			if err == nil {
				t.Fatalf("expected error, got %+v", s)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadUnreadable(t *testing.T) {
	// A directory where the file should be.
	dir := t.TempDir()
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error reading a directory")
	}
}
