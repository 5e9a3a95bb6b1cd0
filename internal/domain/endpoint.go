package domain

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint is an immutable backend address
type Endpoint struct {
	Scheme     string `json:"scheme" yaml:"scheme"`
	Host       string `json:"host" yaml:"host"`
	Port       int    `json:"port" yaml:"port"`
	PathPrefix string `json:"path_prefix" yaml:"path_prefix"`
}

// NewEndpoint creates an endpoint, normalizing the scheme and path prefix
func NewEndpoint(scheme, host string, port int, pathPrefix string) Endpoint {
	if scheme == "" {
		scheme = "http"
	}
	return Endpoint{
		Scheme:     strings.ToLower(scheme),
		Host:       host,
		Port:       port,
		PathPrefix: normalizePrefix(pathPrefix),
	}
}

// BaseURL renders the endpoint as scheme://host:port/prefix/
func (e Endpoint) BaseURL() string {
	hostPort := e.Host
	if e.Port > 0 {
		hostPort = net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
	}
	return fmt.Sprintf("%s://%s%s", e.Scheme, hostPort, e.PathPrefix)
}

// String implements fmt.Stringer
func (e Endpoint) String() string {
	return e.BaseURL()
}

// IsZero reports whether the endpoint has no host
func (e Endpoint) IsZero() bool {
	return e.Host == ""
}

// WithHost returns a copy of e pointing at a different host
func (e Endpoint) WithHost(host string) Endpoint {
	e.Host = host
	return e
}

// Resolve joins a relative path onto the endpoint's base URL
func (e Endpoint) Resolve(rel string) string {
	return e.BaseURL() + strings.TrimPrefix(rel, "/")
}

// ParseEndpoint parses a base URL such as http://10.1.1.9:5000/api/
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoint{}, fmt.Errorf("parse endpoint %q: unsupported scheme %q", raw, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return Endpoint{}, fmt.Errorf("parse endpoint %q: missing host", raw)
	}

	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return Endpoint{}, fmt.Errorf("parse endpoint %q: invalid port %q", raw, p)
		}
	}

	return NewEndpoint(u.Scheme, host, port, u.Path), nil
}

// ParseOverride accepts operator input for a manual override. Valid forms are a
// full base URL, a bare host ("10.1.1.50", "backend.lan") or host:port. Bare
// hosts inherit scheme, port and path prefix from template.
func ParseOverride(input string, template Endpoint) (Endpoint, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Endpoint{}, fmt.Errorf("%w: empty input", ErrInvalidOverrideFormat)
	}

	if strings.Contains(input, "://") {
		ep, err := ParseEndpoint(input)
		if err != nil {
			return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidOverrideFormat, err)
		}
		return ep, nil
	}

	host, port := input, template.Port
	if h, p, err := net.SplitHostPort(input); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return Endpoint{}, fmt.Errorf("%w: invalid port %q", ErrInvalidOverrideFormat, p)
		}
		host, port = h, n
	}

	if !ValidHost(host) {
		return Endpoint{}, fmt.Errorf("%w: invalid host %q", ErrInvalidOverrideFormat, host)
	}

	return NewEndpoint(template.Scheme, host, port, template.PathPrefix), nil
}

// ValidHost reports whether s is an IPv4 address or an RFC 1123 hostname
func ValidHost(s string) bool {
	if s == "" || len(s) > 253 {
		return false
	}
	if ip := net.ParseIP(s); ip != nil {
		return ip.To4() != nil
	}

	allDigits := true
	for _, label := range strings.Split(s, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			switch {
			case c >= '0' && c <= '9':
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '-':
				allDigits = false
			default:
				return false
			}
		}
	}
	// Dotted digits that failed ParseIP ("192.168.1.300") are not hostnames
	return !allDigits
}

func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}
