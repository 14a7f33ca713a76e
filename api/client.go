package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultAPIBase is prepended to relative endpoints.
const DefaultAPIBase = "/api"

const userAgent = "siem-tui/1.0"

// ClientParams holds configuration for creating a Client.
type ClientParams struct {
	BaseURL            string
	APIBase            string
	Username           string
	Password           string
	InsecureSkipVerify bool
	// Dial overrides the transport dialer, e.g. to tunnel through SSH.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)
	// HTTPClient replaces the client built from the fields above.
	HTTPClient *http.Client
	Session    *Session
	Logger     *slog.Logger
	// RequestsPerSecond paces outgoing requests; zero disables pacing.
	RequestsPerSecond float64
	Burst             int
}

// Client issues authenticated requests against the SIEM API. Every call
// doubles as a session liveness check.
type Client struct {
	base     *url.URL
	apiBase  string
	username string
	password string
	http     *http.Client
	session  *Session
	logger   *slog.Logger
	limiter  *rate.Limiter
}

// NewClient creates a Client for the given params.
func NewClient(p ClientParams) (*Client, error) {
	base, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url %q: %w", p.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", p.BaseURL)
	}

	apiBase := p.APIBase
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}

	httpClient := p.HTTPClient
	if httpClient == nil {
		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        32,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: p.InsecureSkipVerify},
		}
		if p.Dial != nil {
			transport.DialContext = p.Dial
		}
		// No client-wide timeout: deadlines come from the caller's context.
		httpClient = &http.Client{Transport: transport}
	}

	session := p.Session
	if session == nil {
		session = NewSession(nil)
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if p.RequestsPerSecond > 0 {
		burst := p.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(p.RequestsPerSecond), burst)
	}

	return &Client{
		base:     base,
		apiBase:  "/" + strings.Trim(apiBase, "/"),
		username: p.Username,
		password: p.Password,
		http:     httpClient,
		session:  session,
		logger:   logger,
		limiter:  limiter,
	}, nil
}

// Session returns the session state this client writes to.
func (c *Client) Session() *Session {
	return c.session
}

// RequestOption customises a single request.
type RequestOption func(*http.Request)

// WithQuery sets the request's query string.
func WithQuery(q url.Values) RequestOption {
	return func(r *http.Request) {
		r.URL.RawQuery = q.Encode()
	}
}

// WithHeader sets a request header, overriding the defaults.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// resolve turns an endpoint into an absolute URL. Paths starting with "/"
// are taken as-is; anything else is placed under the API base.
func (c *Client) resolve(endpoint string) (*url.URL, error) {
	path := endpoint
	if !strings.HasPrefix(endpoint, "/") {
		path = c.apiBase + "/" + endpoint
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	return c.base.ResolveReference(ref), nil
}

// Get issues a GET request. The returned response is always 2xx or a non-401
// error status; the caller owns the body. A 401 is converted into
// ErrAuthRequired after the session has been updated. Transport failures are
// mapped to ErrCanceled, ErrTimeout or ErrNetwork.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOption) (*http.Response, error) {
	u, err := c.resolve(endpoint)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	for _, opt := range opts {
		opt(req)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportError(ctx, err)
		}
	}

	ticket := c.session.Begin()
	resp, err := c.http.Do(req)
	if err != nil {
		err = transportError(ctx, err)
		if !IsSilent(err) {
			c.logger.Warn("api request failed", "endpoint", endpoint, "error", err)
		}
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if c.session.ObserveUnauthorized(ticket) {
			c.logger.Info("session expired", "endpoint", endpoint)
		}
		return nil, ErrAuthRequired
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.session.ObserveSuccess(ticket)
	}
	c.logger.Debug("api request", "endpoint", endpoint, "status", resp.StatusCode,
		"request_id", req.Header.Get("X-Request-ID"))
	return resp, nil
}

// Probe issues a lightweight request purely for its session side effect.
func (c *Client) Probe(ctx context.Context) error {
	resp, err := c.Get(ctx, "dashboard/active-agents")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	return nil
}

// statusError converts a non-2xx, non-401 response into an error.
func statusError(resp *http.Response) error {
	text := http.StatusText(resp.StatusCode)
	if s := resp.Status; s != "" {
		if _, rest, ok := strings.Cut(s, " "); ok {
			text = rest
		}
	}
	return &HTTPError{Status: resp.StatusCode, StatusText: text}
}
