package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"edgelog/internal/hub"
	"edgelog/internal/trust"
)

type testEnv struct {
	*Env
	root   string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return &testEnv{
		Env:    &Env{Stdin: strings.NewReader(""), Stdout: stdout, Stderr: stderr},
		root:   t.TempDir(),
		stdout: stdout,
		stderr: stderr,
	}
}

func (e *testEnv) execute(args ...string) error {
	cmd := NewRootCommand(e.Env, "1.2.3")
	cmd.SetArgs(append([]string{"--home", e.root}, args...))
	return cmd.Execute()
}

func (e *testEnv) writeSettings(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.root, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) seedKnownHubs(t *testing.T, hubs map[string]trust.Record) {
	t.Helper()
	if err := trust.NewStore(filepath.Join(e.root, "known_hubs.json")).Save(hubs); err != nil {
		t.Fatal(err)
	}
}

func TestVersion(t *testing.T) {
	e := newTestEnv(t)
	if err := e.execute("version"); err != nil {
		t.Fatal(err)
	}
	if e.stdout.String() != "1.2.3\n" {
		t.Errorf("got %q", e.stdout.String())
	}
}

func TestKnownHubsList(t *testing.T) {
	e := newTestEnv(t)
	e.seedKnownHubs(t, map[string]trust.Record{
		"192.168.0.9:9495": {Hostname: "192.168.0.9:9495", Fingerprint: "BB:BB"},
		"192.168.0.1:9495": {Hostname: "192.168.0.1:9495", Fingerprint: "AA:AA"},
	})

	if err := e.execute("known-hubs", "list"); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(e.stdout.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), e.stdout.String())
	}
	if !strings.HasPrefix(lines[0], "Authority") || !strings.HasPrefix(lines[1], "192.168.0.1:9495") || !strings.Contains(lines[2], "BB:BB") {
		t.Errorf("unexpected table:\n%s", e.stdout.String())
	}
}

func TestKnownHubsListJSON(t *testing.T) {
	e := newTestEnv(t)
	e.seedKnownHubs(t, map[string]trust.Record{
		"192.168.0.1:9495": {Hostname: "192.168.0.1:9495", Fingerprint: "AA:AA"},
	})

	if err := e.execute("known-hubs", "list", "-o", "json"); err != nil {
		t.Fatal(err)
	}
	var got map[string]trust.Record
	if err := json.Unmarshal(e.stdout.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, e.stdout.String())
	}
	if got["192.168.0.1:9495"].Fingerprint != "AA:AA" {
		t.Errorf("got %v", got)
	}
}

func TestKnownHubsForget(t *testing.T) {
	e := newTestEnv(t)
	e.seedKnownHubs(t, map[string]trust.Record{
		"192.168.0.1:9495": {Hostname: "192.168.0.1:9495", Fingerprint: "AA:AA"},
		"192.168.0.2:9495": {Hostname: "192.168.0.2:9495", Fingerprint: "BB:BB"},
	})

	if err := e.execute("known-hubs", "forget", "192.168.0.1"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(e.stdout.String(), "Removed 192.168.0.1:9495") {
		t.Errorf("got %q", e.stdout.String())
	}

	hubs, err := trust.NewStore(filepath.Join(e.root, "known_hubs.json")).Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := hubs["192.168.0.1:9495"]; ok || len(hubs) != 1 {
		t.Errorf("known hubs = %v", hubs)
	}

	if err := e.execute("known-hubs", "forget", "192.168.0.1"); err == nil {
		t.Error("forgetting an unknown hub should fail")
	}
	if err := e.execute("known-hubs", "forget", "hub.local"); !errors.Is(err, hub.ErrIPv4Format) {
		t.Errorf("got %v, want IPv4 format error", err)
	}
}

func TestLogcatRejectsBadAddress(t *testing.T) {
	tests := []struct {
		address string
		want    error
	}{
		{"1.2.3.4:5:6", hub.ErrAddressFormat},
		{"hub.local", hub.ErrIPv4Format},
		{"1.2.3.4:port", hub.ErrPortFormat},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			e := newTestEnv(t)
			if err := e.execute("logcat", "--hub-address", tt.address); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLogcatNeedsAddressWhenNotInteractive(t *testing.T) {
	e := newTestEnv(t)
	if err := e.execute("logcat"); !errors.Is(err, ErrNotInteractive) {
		t.Errorf("got %v, want not interactive", err)
	}
}

func TestLogcatRejectsUnknownOutput(t *testing.T) {
	e := newTestEnv(t)
	err := e.execute("logcat", "--hub-address", "192.168.0.1", "-o", "yaml")
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Errorf("got %v", err)
	}
}

func TestLogcatRejectsNegativeTimeout(t *testing.T) {
	e := newTestEnv(t)
	err := e.execute("logcat", "--hub-address", "192.168.0.1", "--connect-timeout=-1s")
	if err == nil || !strings.Contains(err.Error(), "connect-timeout") {
		t.Errorf("got %v", err)
	}
}

func TestSettingsProvideHubAddress(t *testing.T) {
	e := newTestEnv(t)
	e.writeSettings(t, "hub_address: not-an-ip\n")
	if err := e.execute("drivers"); !errors.Is(err, hub.ErrIPv4Format) {
		t.Errorf("got %v, want the settings address to be parsed", err)
	}
}

func TestSettingsErrors(t *testing.T) {
	tests := []struct {
		name     string
		settings string
		args     []string
	}{
		{"bad yaml", "output: [\n", []string{"version"}},
		{"bad log level", "log_level: loud\n", []string{"version"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.writeSettings(t, tt.settings)
			if err := e.execute(tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLogLevelFlag(t *testing.T) {
	e := newTestEnv(t)
	if err := e.execute("--log-level", "loud", "version"); err == nil {
		t.Error("expected error for unknown level")
	}
	e = newTestEnv(t)
	if err := e.execute("--log-level", "debug", "version"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(e.stderr.String(), "home directory") {
		t.Errorf("debug logging not enabled: %q", e.stderr.String())
	}
}

func TestTokenPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		env      string
		settings string
		want     string
	}{
		{"flag wins", "from-flag", "from-env", "from-file", "Bearer from-flag"},
		{"env over file", "", "from-env", "from-file", "Bearer from-env"},
		{"file", "", "", "from-file", "Bearer from-file"},
		{"none", "", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tokenEnv, tt.env)
			env := &Env{}
			env.Settings.Token = tt.settings

			root := NewRootCommand(env, "test")
			cmd, _, err := root.Find([]string{"drivers"})
			if err != nil {
				t.Fatal(err)
			}
			var args []string
			if tt.flag != "" {
				args = []string{"--token", tt.flag}
			}
			if err := cmd.ParseFlags(args); err != nil {
				t.Fatal(err)
			}

			req := httptest.NewRequest("GET", "https://192.168.0.1:9495/drivers", nil)
			if err := env.authenticatorFromCmd(cmd).Authenticate(context.Background(), req); err != nil {
				t.Fatal(err)
			}
			if got := req.Header.Get("Authorization"); got != tt.want {
				t.Errorf("Authorization = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInterruptedDropsError(t *testing.T) {
	boom := errors.New("prompt: context canceled")
	if err := interrupted(context.Background(), boom); err != boom {
		t.Errorf("live context: got %v, want %v", err, boom)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := interrupted(ctx, boom); err != nil {
		t.Errorf("cancelled context: got %v, want nil", err)
	}
}
