package api

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig describes a jump host used to reach an API that is only
// listening on the SIEM host's private interfaces.
type SSHConfig struct {
	Host               string
	Port               int
	User               string
	PrivateKey         []byte
	HostKeyFingerprint string
}

// SSHDialer tunnels TCP connections through a lazily established SSH client.
type SSHDialer struct {
	cfg    SSHConfig
	mu     sync.Mutex
	client *ssh.Client
}

// NewSSHDialer validates cfg and returns a dialer. No connection is made
// until the first DialContext.
func NewSSHDialer(cfg SSHConfig) (*SSHDialer, error) {
	if cfg.HostKeyFingerprint == "" {
		return nil, fmt.Errorf("ssh: host_key_fingerprint is required")
	}
	if _, err := ssh.ParsePrivateKey(cfg.PrivateKey); err != nil {
		return nil, fmt.Errorf("ssh: parsing private key: %w", err)
	}
	return &SSHDialer{cfg: cfg}, nil
}

func (d *SSHDialer) connect() (*ssh.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client != nil {
		return d.client, nil
	}

	signer, err := ssh.ParsePrivateKey(d.cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("ssh: parsing private key: %w", err)
	}
	want := d.cfg.HostKeyFingerprint
	clientCfg := &ssh.ClientConfig{
		User: d.cfg.User,
		Auth: []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: func(_ string, _ net.Addr, key ssh.PublicKey) error {
			if got := ssh.FingerprintSHA256(key); got != want {
				return fmt.Errorf("ssh: host key mismatch: got %s, want %s", got, want)
			}
			return nil
		},
		Timeout: 10 * time.Second,
	}
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("ssh: connecting to %s: %w", addr, err)
	}
	d.client = client
	return client, nil
}

// DialContext opens a connection to addr through the SSH tunnel.
func (d *SSHDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	client, err := d.connect()
	if err != nil {
		return nil, err
	}
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := client.Dial(network, addr)
		ch <- result{conn, err}
	}()
	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			// Drop a dead client so the next dial reconnects.
			d.mu.Lock()
			if d.client == client {
				d.client.Close()
				d.client = nil
			}
			d.mu.Unlock()
		}
		return r.conn, r.err
	}
}

// Close shuts down the SSH connection, if any.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

// ScanHostKey connects to an SSH server and returns the host key fingerprint.
func ScanHostKey(host string, port int) (string, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	var fingerprint string
	cfg := &ssh.ClientConfig{
		User: "probe",
		HostKeyCallback: func(_ string, _ net.Addr, key ssh.PublicKey) error {
			fingerprint = ssh.FingerprintSHA256(key)
			return nil
		},
		Timeout: 5 * time.Second,
	}
	conn, err := ssh.Dial("tcp", addr, cfg)
	if conn != nil {
		conn.Close()
	}
	if fingerprint != "" {
		return fingerprint, nil
	}
	return "", fmt.Errorf("could not connect to %s: %v", addr, err)
}
