package prober

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"waypoint/internal/domain"
)

// candidateFor builds a candidate pointing at an httptest server
func candidateFor(t *testing.T, srv *httptest.Server, prefix string) domain.Candidate {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("bad server URL: %v", err)
	}
	port, _ := strconv.Atoi(u.Port())
	return domain.NewCandidate(domain.NewEndpoint("http", u.Hostname(), port, prefix), domain.ProvenanceStaticList)
}

func TestProbeHealthy(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(DefaultConfig())
	r := p.Probe(context.Background(), candidateFor(t, srv, "/api/"))

	if !r.Reachable {
		t.Fatalf("expected reachable, got %+v", r)
	}
	if gotPath != "/api/health" {
		t.Errorf("probed path = %q, want /api/health", gotPath)
	}
	if r.StatusCode != http.StatusOK || r.ErrorKind != domain.ErrorKindNone {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestProbeLargeBodyStillReachable(t *testing.T) {
	body := strings.Repeat("x", 1<<20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	p := New(DefaultConfig())
	for i := 0; i < 2; i++ {
		if r := p.Probe(context.Background(), candidateFor(t, srv, "/api/")); !r.Reachable {
			t.Fatalf("probe %d: expected reachable, got %+v", i, r)
		}
	}
}

func TestProbeRequiresExact200(t *testing.T) {
	for _, code := range []int{http.StatusNoContent, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			}))
			defer srv.Close()

			r := New(DefaultConfig()).Probe(context.Background(), candidateFor(t, srv, "/api/"))
			if r.Reachable {
				t.Fatalf("status %d must not be reachable", code)
			}
			if r.ErrorKind != domain.ErrorKindProtocol || !errors.Is(r.Err, domain.ErrProbeProtocol) {
				t.Errorf("expected protocol error, got %s / %v", r.ErrorKind, r.Err)
			}
		})
	}
}

func TestProbeDoesNotFollowRedirects(t *testing.T) {
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer portal.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, portal.URL+"/login", http.StatusFound)
	}))
	defer srv.Close()

	r := New(DefaultConfig()).Probe(context.Background(), candidateFor(t, srv, "/api/"))
	if r.Reachable {
		t.Fatal("redirect must not count as reachable")
	}
	if r.StatusCode != http.StatusFound || r.ErrorKind != domain.ErrorKindProtocol {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestProbeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := New(Config{Timeout: 50 * time.Millisecond})
	r := p.Probe(context.Background(), candidateFor(t, srv, "/api/"))
	if r.Reachable {
		t.Fatal("expected unreachable")
	}
	if r.ErrorKind != domain.ErrorKindTimeout {
		t.Errorf("ErrorKind = %s, want timeout (err=%v)", r.ErrorKind, r.Err)
	}
}

func TestProbeRefused(t *testing.T) {
	// Grab a free port, then close the listener so nothing is there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	c := domain.NewCandidate(domain.NewEndpoint("http", "127.0.0.1", port, "/api/"), domain.ProvenanceLoopback)
	r := New(DefaultConfig()).Probe(context.Background(), c)
	if r.Reachable {
		t.Fatal("expected unreachable")
	}
	if r.ErrorKind != domain.ErrorKindRefused {
		t.Errorf("ErrorKind = %s, want refused (err=%v)", r.ErrorKind, r.Err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"nil", nil, domain.ErrorKindNone},
		{"dns", &net.DNSError{Err: "no such host", Name: "backend.lan", IsNotFound: true}, domain.ErrorKindDNS},
		{"dns timeout", &net.DNSError{Err: "i/o timeout", Name: "backend.lan", IsTimeout: true}, domain.ErrorKindTimeout},
		{"deadline", context.DeadlineExceeded, domain.ErrorKindTimeout},
		{"wrapped deadline", &url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded}, domain.ErrorKindTimeout},
		{"other", errors.New("tls: bad certificate"), domain.ErrorKindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}
