package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"github.com/deevus/siem-tui/api"
	"github.com/deevus/siem-tui/app"
	"github.com/deevus/siem-tui/config"
	"github.com/deevus/siem-tui/internal"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	serverName string
)

var rootCmd = &cobra.Command{
	Use:           "siem-tui",
	Short:         "Terminal console for a SIEM API",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConsole,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to config file")
	rootCmd.PersistentFlags().StringVar(&serverName, "server", "", "server profile name from config")
}

func main() {
	// .env is optional.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// session bundles everything a command needs to talk to one server.
type session struct {
	name    string
	cfg     *config.Config
	client  *api.Client
	dialer  *api.SSHDialer
	logger  *slog.Logger
	logFile io.Closer
}

func (s *session) Close() {
	if s.dialer != nil {
		s.dialer.Close()
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
}

// openSession loads config, sets up logging and builds the API client for
// the selected server profile.
func openSession() (*session, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, err
	}
	name, server, err := cfg.Server(serverName)
	if err != nil {
		return nil, err
	}

	s := &session{name: name, cfg: cfg}
	s.logger, s.logFile, err = newLogger(cfg.Console)
	if err != nil {
		return nil, err
	}

	params := api.ClientParams{
		BaseURL:            server.URL,
		Username:           server.Username,
		Password:           server.Password,
		InsecureSkipVerify: server.InsecureSkipVerify,
		Logger:             s.logger,
		RequestsPerSecond:  cfg.Console.RequestsPerSecond,
	}
	if server.SSH != nil {
		s.dialer, err = newSSHDialer(name, server)
		if err != nil {
			s.Close()
			return nil, err
		}
		params.Dial = s.dialer.DialContext
	}

	s.client, err = api.NewClient(params)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newSSHDialer(name string, server config.ServerConfig) (*api.SSHDialer, error) {
	ssh := server.SSH
	host := ssh.Host
	if host == "" {
		host = hostOf(server.URL)
	}

	if ssh.HostKeyFingerprint == "" {
		fingerprint, err := api.ScanHostKey(host, ssh.Port)
		if err != nil {
			return nil, fmt.Errorf("host_key_fingerprint is required for SSH\n"+
				"Could not auto-detect: %v\n"+
				"Get it with: ssh-keyscan -p %d %s 2>/dev/null | ssh-keygen -lf -", err, ssh.Port, host)
		}
		return nil, fmt.Errorf("host_key_fingerprint is required for SSH\n"+
			"Detected fingerprint for %s:\n\n  host_key_fingerprint = %q\n\n"+
			"Add this to [servers.%s.ssh] in your config", host, fingerprint, name)
	}

	privateKey, err := os.ReadFile(ssh.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading SSH private key %s: %w", ssh.PrivateKeyPath, err)
	}
	return api.NewSSHDialer(api.SSHConfig{
		Host:               host,
		Port:               ssh.Port,
		User:               ssh.Username,
		PrivateKey:         privateKey,
		HostKeyFingerprint: ssh.HostKeyFingerprint,
	})
}

// hostOf extracts the bare host from an http(s) URL.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// newLogger writes structured logs to the configured file. Without one,
// logs are discarded so they never corrupt the terminal UI.
func newLogger(con config.ConsoleConfig) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(con.LogLevel)); err != nil {
		return nil, nil, fmt.Errorf("parsing log level: %w", err)
	}
	if con.LogFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), nil, nil
	}
	f, err := os.OpenFile(con.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, f, nil
}

func runConsole(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	root, err := app.New(app.Params{
		Services:   internal.FromClient(s.client),
		ServerName: s.name,
		Console:    s.cfg.Console,
		Logger:     s.logger,
	})
	if err != nil {
		return err
	}
	defer root.Close()

	vxApp, err := vxfw.NewApp(vaxis.Options{})
	if err != nil {
		return err
	}
	root.SetPostEvent(vxApp.PostEvent)
	root.LoadAll()

	s.logger.Info("console started", "server", s.name)
	return vxApp.Run(root)
}
