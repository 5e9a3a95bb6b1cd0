// Package prober checks whether a candidate endpoint is a live backend.
//
// A probe is a single GET of the health path under the candidate's base URL.
// Only an exact HTTP 200 inside the timeout counts as reachable. Redirects are
// never followed, so captive portals answering 302 are not mistaken for the
// backend.
package prober

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"waypoint/internal/domain"
)

const (
	// DefaultHealthPath is resolved against the endpoint's path prefix, so the
	// default endpoint prefix /api/ yields /api/health
	DefaultHealthPath = "health"
	DefaultTimeout    = 2 * time.Second

	maxDrain = 4 << 10
)

// Checker probes one candidate
type Checker interface {
	Probe(ctx context.Context, c domain.Candidate) domain.ProbeResult
}

// Config holds prober settings
type Config struct {
	HealthPath string
	Timeout    time.Duration
}

// DefaultConfig returns the default prober configuration
func DefaultConfig() Config {
	return Config{
		HealthPath: DefaultHealthPath,
		Timeout:    DefaultTimeout,
	}
}

// HTTPProber implements Checker over net/http
type HTTPProber struct {
	config Config
	client *http.Client
}

// New creates an HTTPProber. Zero config fields take defaults.
func New(config Config) *HTTPProber {
	if config.HealthPath == "" {
		config.HealthPath = DefaultHealthPath
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy: nil,
		DialContext: (&net.Dialer{
			Timeout: config.Timeout,
		}).DialContext,
		TLSHandshakeTimeout:   config.Timeout,
		ResponseHeaderTimeout: config.Timeout,
		DisableKeepAlives:     true,
	}

	return &HTTPProber{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Timeout returns the per-probe timeout
func (p *HTTPProber) Timeout() time.Duration {
	return p.config.Timeout
}

// Probe issues GET <base>/<health path> and classifies the outcome
func (p *HTTPProber) Probe(ctx context.Context, c domain.Candidate) domain.ProbeResult {
	result := domain.ProbeResult{Candidate: c}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint.Resolve(p.config.HealthPath), nil)
	if err != nil {
		result.ErrorKind, result.Err = domain.ErrorKindProtocol, err
		return result
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		result.ErrorKind, result.Err = Classify(err)
		return result
	}
	defer resp.Body.Close()
	// Drain a little so the keep-alive connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	result.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		result.ErrorKind = domain.ErrorKindProtocol
		result.Err = StatusError(resp.StatusCode)
		return result
	}

	result.Reachable = true
	return result
}

var _ Checker = (*HTTPProber)(nil)
