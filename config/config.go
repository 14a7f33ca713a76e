package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// EnvProfile is the server profile name created from SIEM_URL.
const EnvProfile = "env"

// Config is the top-level configuration.
type Config struct {
	Servers map[string]ServerConfig `toml:"servers"`
	Console ConsoleConfig           `toml:"console"`
}

// ServerConfig holds connection details for one SIEM API.
type ServerConfig struct {
	URL                string     `toml:"url"`
	Username           string     `toml:"username"`
	Password           string     `toml:"password"`
	InsecureSkipVerify bool       `toml:"insecure_skip_verify"`
	SSH                *SSHConfig `toml:"ssh"`
}

// SSHConfig holds optional SSH tunnel details for reaching the API.
type SSHConfig struct {
	Host               string `toml:"host"`
	Port               int    `toml:"port"`
	Username           string `toml:"username"`
	PrivateKeyPath     string `toml:"private_key_path"`
	HostKeyFingerprint string `toml:"host_key_fingerprint"`
}

// ConsoleConfig tunes refresh, search and export behaviour.
type ConsoleConfig struct {
	RefreshInterval      Duration `toml:"refresh_interval"`
	NotificationTTL      Duration `toml:"notification_ttl"`
	DebounceDelay        Duration `toml:"debounce_delay"`
	SearchTimeout        Duration `toml:"search_timeout"`
	ExportTimeout        Duration `toml:"export_timeout"`
	PageSize             int      `toml:"page_size"`
	DownloadDir          string   `toml:"download_dir"`
	LogFile              string   `toml:"log_file"`
	LogLevel             string   `toml:"log_level"`
	RequestsPerSecond    float64  `toml:"requests_per_second"`
	MaxConcurrentWidgets int      `toml:"max_concurrent_widgets"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Defaults.
const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultNotificationTTL = 3 * time.Second
	DefaultDebounceDelay   = 500 * time.Millisecond
	DefaultSearchTimeout   = 10 * time.Second
	DefaultExportTimeout   = 30 * time.Second
	DefaultPageSize        = 50
	MaxPageSize            = 100
	DefaultLogLevel        = "info"
)

// envOverrides are read from the process environment (and .env).
type envOverrides struct {
	URL      string `env:"SIEM_URL"`
	User     string `env:"SIEM_USER"`
	Password string `env:"SIEM_PASSWORD"`
	LogLevel string `env:"SIEM_LOG_LEVEL"`
}

// DefaultPath returns the default config file path using XDG conventions.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "siem-tui", "config.toml")
}

// LoadFrom reads the config file at path, applies environment overrides
// and defaults, and validates the result. A missing file is only an error
// when the environment does not describe a server either.
func LoadFrom(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	missing := errors.Is(err, fs.ErrNotExist)
	if err != nil && !missing {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if missing && ov.URL == "" {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	cfg.applyEnv(ov)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(ov envOverrides) {
	if c.Servers == nil {
		c.Servers = make(map[string]ServerConfig)
	}
	if ov.URL != "" {
		c.Servers[EnvProfile] = ServerConfig{URL: ov.URL, Username: ov.User, Password: ov.Password}
	} else if ov.User != "" || ov.Password != "" {
		for name, server := range c.Servers {
			if ov.User != "" {
				server.Username = ov.User
			}
			if ov.Password != "" {
				server.Password = ov.Password
			}
			c.Servers[name] = server
		}
	}
	if ov.LogLevel != "" {
		c.Console.LogLevel = ov.LogLevel
	}
}

func (c *Config) applyDefaults() {
	for name, server := range c.Servers {
		server.URL = strings.TrimRight(server.URL, "/")
		if server.SSH != nil {
			if server.SSH.Port == 0 {
				server.SSH.Port = 22
			}
			if server.SSH.Username == "" {
				server.SSH.Username = server.Username
			}
			server.SSH.PrivateKeyPath = expandPath(server.SSH.PrivateKeyPath)
		}
		c.Servers[name] = server
	}

	con := &c.Console
	setDuration(&con.RefreshInterval, DefaultRefreshInterval)
	setDuration(&con.NotificationTTL, DefaultNotificationTTL)
	setDuration(&con.DebounceDelay, DefaultDebounceDelay)
	setDuration(&con.SearchTimeout, DefaultSearchTimeout)
	setDuration(&con.ExportTimeout, DefaultExportTimeout)
	if con.PageSize == 0 {
		con.PageSize = DefaultPageSize
	}
	if con.LogLevel == "" {
		con.LogLevel = DefaultLogLevel
	}
	if con.DownloadDir == "" {
		con.DownloadDir = defaultDownloadDir()
	}
	con.DownloadDir = expandPath(con.DownloadDir)
	if con.LogFile != "" {
		con.LogFile = expandPath(con.LogFile)
	}
}

func setDuration(d *Duration, def time.Duration) {
	if d.Duration == 0 {
		d.Duration = def
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("config has no servers defined")
	}
	for _, name := range c.ServerNames() {
		server := c.Servers[name]
		u, err := url.Parse(server.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("server %q: url must be an absolute http(s) URL, got %q", name, server.URL)
		}
	}
	con := c.Console
	if con.PageSize < 1 || con.PageSize > MaxPageSize {
		return fmt.Errorf("console.page_size must be between 1 and %d, got %d", MaxPageSize, con.PageSize)
	}
	for key, d := range map[string]Duration{
		"refresh_interval": con.RefreshInterval,
		"notification_ttl": con.NotificationTTL,
		"debounce_delay":   con.DebounceDelay,
		"search_timeout":   con.SearchTimeout,
		"export_timeout":   con.ExportTimeout,
	} {
		if d.Duration < 0 {
			return fmt.Errorf("console.%s must be positive, got %s", key, d)
		}
	}
	if con.RequestsPerSecond < 0 {
		return fmt.Errorf("console.requests_per_second must not be negative")
	}
	if con.MaxConcurrentWidgets < 0 {
		return fmt.Errorf("console.max_concurrent_widgets must not be negative")
	}
	switch strings.ToLower(con.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("console.log_level must be debug, info, warn or error, got %q", con.LogLevel)
	}
	return nil
}

// Server resolves a profile by name. An empty name selects the only
// configured profile.
func (c *Config) Server(name string) (string, ServerConfig, error) {
	if name == "" {
		names := c.ServerNames()
		if len(names) != 1 {
			return "", ServerConfig{}, fmt.Errorf("multiple servers configured, use --server (available: %s)", strings.Join(names, ", "))
		}
		name = names[0]
	}
	server, ok := c.Servers[name]
	if !ok {
		return "", ServerConfig{}, fmt.Errorf("server %q not found in config", name)
	}
	return name, server, nil
}

// expandPath expands ~ to $HOME and then expands all environment variables.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		path = "$HOME" + path[1:]
	}
	return os.ExpandEnv(path)
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// ServerNames returns the sorted list of server profile names.
func (c *Config) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
