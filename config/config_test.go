package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deevus/siem-tui/config"
)

// clearEnv isolates tests from SIEM_* variables set in the developer's shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SIEM_URL", "SIEM_USER", "SIEM_PASSWORD", "SIEM_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[servers.soc]
url = "https://siem.example.com/"
username = "analyst"
password = "s3cret"

[servers.lab]
url = "http://10.0.0.5:8000"
username = "admin"
password = "admin"
insecure_skip_verify = true

[console]
refresh_interval = "1m"
page_size = 100
download_dir = "/tmp/exports"
requests_per_second = 5
`)

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(cfg.Servers))
	}

	soc := cfg.Servers["soc"]
	if soc.URL != "https://siem.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", soc.URL)
	}
	if soc.Username != "analyst" || soc.Password != "s3cret" {
		t.Errorf("unexpected credentials %q/%q", soc.Username, soc.Password)
	}
	if !cfg.Servers["lab"].InsecureSkipVerify {
		t.Error("expected insecure_skip_verify=true for lab")
	}

	con := cfg.Console
	if con.RefreshInterval.Duration != time.Minute {
		t.Errorf("expected refresh 1m, got %s", con.RefreshInterval)
	}
	if con.PageSize != 100 || con.DownloadDir != "/tmp/exports" || con.RequestsPerSecond != 5 {
		t.Errorf("unexpected console config %+v", con)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[servers.soc]
url = "https://siem.example.com"
`)
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	con := cfg.Console
	checks := []struct {
		name      string
		got, want time.Duration
	}{
		{"refresh_interval", con.RefreshInterval.Duration, 30 * time.Second},
		{"notification_ttl", con.NotificationTTL.Duration, 3 * time.Second},
		{"debounce_delay", con.DebounceDelay.Duration, 500 * time.Millisecond},
		{"search_timeout", con.SearchTimeout.Duration, 10 * time.Second},
		{"export_timeout", con.ExportTimeout.Duration, 30 * time.Second},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %s, got %s", c.name, c.want, c.got)
		}
	}
	if con.PageSize != 50 {
		t.Errorf("expected page size 50, got %d", con.PageSize)
	}
	if con.LogLevel != "info" {
		t.Errorf("expected log level info, got %s", con.LogLevel)
	}
	if con.DownloadDir == "" {
		t.Error("expected a default download dir")
	}
}

func TestLoad_WithSSH(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[servers.soc]
url = "http://127.0.0.1:8000"
username = "analyst"

[servers.soc.ssh]
host = "bastion.example.com"
port = 2222
username = "tunnel"
private_key_path = "/home/test/.ssh/id_ed25519"
host_key_fingerprint = "SHA256:abc123"
`)
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ssh := cfg.Servers["soc"].SSH
	if ssh == nil {
		t.Fatal("expected SSH config")
	}
	if ssh.Host != "bastion.example.com" || ssh.Port != 2222 || ssh.Username != "tunnel" {
		t.Errorf("unexpected ssh config %+v", ssh)
	}
}

func TestLoad_SSHDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[servers.soc]
url = "http://127.0.0.1:8000"
username = "analyst"

[servers.soc.ssh]
private_key_path = "/home/test/.ssh/id_ed25519"
host_key_fingerprint = "SHA256:abc123"
`)
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ssh := cfg.Servers["soc"].SSH
	if ssh.Port != 22 {
		t.Errorf("expected default ssh port 22, got %d", ssh.Port)
	}
	if ssh.Username != "analyst" {
		t.Errorf("expected ssh username to default to 'analyst', got %s", ssh.Username)
	}
}

func TestLoad_ExpandTilde(t *testing.T) {
	clearEnv(t)
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}
	path := writeConfig(t, `
[servers.soc]
url = "http://127.0.0.1:8000"

[servers.soc.ssh]
private_key_path = "~/.ssh/id_ed25519"
host_key_fingerprint = "SHA256:abc123"

[console]
download_dir = "~/exports"
`)
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, want := cfg.Servers["soc"].SSH.PrivateKeyPath, filepath.Join(home, ".ssh", "id_ed25519"); got != want {
		t.Errorf("expected expanded path %s, got %s", want, got)
	}
	if got, want := cfg.Console.DownloadDir, filepath.Join(home, "exports"); got != want {
		t.Errorf("expected expanded download dir %s, got %s", want, got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIEM_PASSWORD", "from-env")
	t.Setenv("SIEM_LOG_LEVEL", "debug")
	path := writeConfig(t, `
[servers.soc]
url = "https://siem.example.com"
username = "analyst"
password = "from-file"
`)
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	soc := cfg.Servers["soc"]
	if soc.Password != "from-env" || soc.Username != "analyst" {
		t.Errorf("expected env password and file username, got %q/%q", soc.Username, soc.Password)
	}
	if cfg.Console.LogLevel != "debug" {
		t.Errorf("expected log level from env, got %s", cfg.Console.LogLevel)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("SIEM_URL", "https://siem.example.com")
	t.Setenv("SIEM_USER", "analyst")

	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	name, server, err := cfg.Server("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != config.EnvProfile || server.URL != "https://siem.example.com" || server.Username != "analyst" {
		t.Errorf("unexpected env profile %s %+v", name, server)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := config.LoadFrom("/nonexistent/config.toml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no servers", ``, "no servers"},
		{"relative url", "[servers.a]\nurl = \"siem.local\"\n", "absolute http(s) URL"},
		{"bad scheme", "[servers.a]\nurl = \"ftp://siem.local\"\n", "absolute http(s) URL"},
		{"page size", "[servers.a]\nurl = \"http://x\"\n[console]\npage_size = 500\n", "page_size"},
		{"duration", "[servers.a]\nurl = \"http://x\"\n[console]\nrefresh_interval = \"soon\"\n", "loading config"},
		{"log level", "[servers.a]\nurl = \"http://x\"\n[console]\nlog_level = \"loud\"\n", "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := config.LoadFrom(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestConfig_Server(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[servers.alpha]
url = "http://a.local"

[servers.beta]
url = "http://b.local"
`)
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := cfg.ServerNames()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("expected [alpha beta], got %v", names)
	}
	if _, _, err := cfg.Server(""); err == nil {
		t.Error("expected error when several servers and no name")
	}
	if name, s, err := cfg.Server("beta"); err != nil || name != "beta" || s.URL != "http://b.local" {
		t.Errorf("unexpected lookup %s %+v %v", name, s, err)
	}
	if _, _, err := cfg.Server("gamma"); err == nil {
		t.Error("expected error for unknown server")
	}
}

func TestDefaultPath(t *testing.T) {
	path := config.DefaultPath()
	if !strings.HasSuffix(path, filepath.Join("siem-tui", "config.toml")) {
		t.Fatalf("unexpected default path %s", path)
	}
}
