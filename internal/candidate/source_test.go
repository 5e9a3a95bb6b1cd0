package candidate

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"waypoint/internal/cache"
	"waypoint/internal/domain"
	"waypoint/internal/repository/memory"
)

var template = domain.NewEndpoint("http", "127.0.0.1", 5000, "/api/")

type fakeSweeper struct {
	hosts []string
	err   error
	calls int
	cidr  string
}

func (f *fakeSweeper) Name() string { return "fake" }

func (f *fakeSweeper) LiveHosts(ctx context.Context, cidr string) ([]string, error) {
	f.calls++
	f.cidr = cidr
	return f.hosts, f.err
}

func collect(s *Source, dev domain.DeviceInfo) []domain.Candidate {
	return slices.Collect(s.Candidates(context.Background(), dev))
}

func hosts(cs []domain.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Endpoint.Host
	}
	return out
}

func TestCandidatesOrder(t *testing.T) {
	ctx := context.Background()
	c := cache.New(memory.New())
	c.SetOverride(ctx, template.WithHost("10.1.1.50"))
	c.Set(ctx, template.WithHost("10.1.1.9"))

	s := NewSource(Config{
		Template:       template,
		StaticHosts:    []string{"10.0.0.5"},
		SequentialScan: 3,
	}, c, c)

	got := collect(s, domain.DeviceInfo{IP: "192.168.29.37", Gateway: "192.168.29.1"})

	want := []string{
		"10.1.1.50",
		"10.1.1.9",
		"192.168.29.1",
		"192.168.29.100",
		"192.168.29.10",
		"192.168.29.50",
		"192.168.29.101",
		"192.168.29.254",
		"192.168.29.2",
		"192.168.29.3",
		"192.168.29.4",
		"10.0.0.5",
		"127.0.0.1",
	}
	if !slices.Equal(hosts(got), want) {
		t.Fatalf("hosts = %v\nwant %v", hosts(got), want)
	}

	wantProv := map[string]domain.Provenance{
		"10.1.1.50":    domain.ProvenanceManual,
		"10.1.1.9":     domain.ProvenanceCached,
		"192.168.29.2": domain.ProvenanceNetworkRange,
		"10.0.0.5":     domain.ProvenanceStaticList,
		"127.0.0.1":    domain.ProvenanceLoopback,
	}
	for _, cand := range got {
		if p, ok := wantProv[cand.Endpoint.Host]; ok && cand.Provenance != p {
			t.Errorf("%s provenance = %s, want %s", cand.Endpoint.Host, cand.Provenance, p)
		}
	}
}

func TestCandidatesSkipsDeviceIPAndDuplicates(t *testing.T) {
	s := NewSource(Config{
		Template:       template,
		StaticHosts:    []string{"192.168.1.1", "10.0.0.5", "10.0.0.5"},
		SequentialScan: 2,
	}, nil, nil)

	got := hosts(collect(s, domain.DeviceInfo{IP: "192.168.1.2", Gateway: "192.168.1.1"}))

	seen := make(map[string]bool)
	for _, h := range got {
		if h == "192.168.1.2" {
			t.Errorf("device IP yielded as candidate")
		}
		if seen[h] {
			t.Errorf("duplicate candidate %s", h)
		}
		seen[h] = true
	}
	// gateway comes first and the static duplicate of it is dropped
	if got[0] != "192.168.1.1" {
		t.Errorf("first candidate = %s, want gateway", got[0])
	}
	if !seen["192.168.1.3"] || !seen["192.168.1.4"] {
		t.Errorf("sequential scan should skip device IP and continue: %v", got)
	}
}

func TestCandidatesWithoutDeviceIP(t *testing.T) {
	sw := &fakeSweeper{hosts: []string{"10.9.9.9"}}
	s := NewSource(Config{Template: template, StaticHosts: []string{"10.0.0.5"}}, nil, nil)
	s.SetSweeper(sw)

	got := hosts(collect(s, domain.DeviceInfo{}))
	want := []string{"10.0.0.5", "127.0.0.1"}
	if !slices.Equal(got, want) {
		t.Errorf("hosts = %v, want %v", got, want)
	}
	if sw.calls != 0 {
		t.Errorf("sweeper called %d times without device IP", sw.calls)
	}
}

func TestCandidatesGatewayOutsideSubnetIgnored(t *testing.T) {
	s := NewSource(Config{Template: template, PriorityOctets: []int{1}}, nil, nil)
	got := hosts(collect(s, domain.DeviceInfo{IP: "192.168.29.37", Gateway: "10.0.0.1"}))
	if slices.Contains(got, "10.0.0.1") {
		t.Errorf("gateway outside /24 should not be a candidate: %v", got)
	}
}

func TestCandidatesSweeperHosts(t *testing.T) {
	sw := &fakeSweeper{hosts: []string{"192.168.29.37", "192.168.29.77"}}
	s := NewSource(Config{Template: template, PriorityOctets: []int{1}}, nil, nil)
	s.SetSweeper(sw)

	got := hosts(collect(s, domain.DeviceInfo{IP: "192.168.29.37"}))
	want := []string{"192.168.29.1", "192.168.29.77", "127.0.0.1"}
	if !slices.Equal(got, want) {
		t.Errorf("hosts = %v, want %v", got, want)
	}
	if sw.cidr != "192.168.29.0/24" {
		t.Errorf("sweep cidr = %s", sw.cidr)
	}
}

func TestCandidatesSweeperErrorIsSoft(t *testing.T) {
	sw := &fakeSweeper{err: errors.New("nmap missing")}
	s := NewSource(Config{Template: template, PriorityOctets: []int{1}, SequentialScan: 1}, nil, nil)
	s.SetSweeper(sw)

	got := hosts(collect(s, domain.DeviceInfo{IP: "10.0.0.9"}))
	want := []string{"10.0.0.1", "10.0.0.2", "127.0.0.1"}
	if !slices.Equal(got, want) {
		t.Errorf("hosts = %v, want %v", got, want)
	}
}

func TestCandidatesLazy(t *testing.T) {
	sw := &fakeSweeper{hosts: []string{"192.168.29.77"}}
	s := NewSource(Config{Template: template}, nil, nil)
	s.SetSweeper(sw)

	for c := range s.Candidates(context.Background(), domain.DeviceInfo{IP: "192.168.29.37"}) {
		if c.Endpoint.Host == "192.168.29.1" {
			break
		}
	}
	if sw.calls != 0 {
		t.Errorf("sweeper should not run when iteration stops early")
	}
}

func TestCandidatesRestartable(t *testing.T) {
	ctx := context.Background()
	c := cache.New(memory.New())
	s := NewSource(Config{Template: template}, c, c)
	seq := s.Candidates(ctx, domain.DeviceInfo{})

	first := hosts(slices.Collect(seq))
	c.SetOverride(ctx, template.WithHost("10.1.1.50"))
	second := hosts(slices.Collect(seq))

	if !slices.Equal(first, []string{"127.0.0.1"}) {
		t.Errorf("first = %v", first)
	}
	if !slices.Equal(second, []string{"10.1.1.50", "127.0.0.1"}) {
		t.Errorf("second iteration should re-read slots, got %v", second)
	}
}

func TestStaticRankedByHistory(t *testing.T) {
	ctx := context.Background()
	c := cache.New(memory.New())
	now := time.Now()
	c.RecordSuccess(ctx, "10.0.0.7", now.Add(-time.Hour))
	c.RecordSuccess(ctx, "10.0.0.6", now)
	c.RecordSuccess(ctx, "10.0.0.99", now.Add(-2*time.Hour))

	s := NewSource(Config{
		Template:    template,
		StaticHosts: []string{"10.0.0.5", "10.0.0.7", "10.0.0.6"},
	}, nil, c)

	got := hosts(collect(s, domain.DeviceInfo{}))
	want := []string{"10.0.0.6", "10.0.0.7", "10.0.0.5", "10.0.0.99", "127.0.0.1"}
	if !slices.Equal(got, want) {
		t.Errorf("hosts = %v, want %v", got, want)
	}
}

func TestStaticEntriesParsed(t *testing.T) {
	s := NewSource(Config{
		Template:    template,
		StaticHosts: []string{"not a host!", "10.0.0.5:8080", "https://backend.lan/v2/"},
	}, nil, nil)

	got := collect(s, domain.DeviceInfo{})
	var urls []string
	for _, c := range got {
		urls = append(urls, c.Endpoint.BaseURL())
	}
	want := []string{
		"http://10.0.0.5:8080/api/",
		"https://backend.lan/v2/",
		"http://127.0.0.1:5000/api/",
	}
	if !slices.Equal(urls, want) {
		t.Errorf("urls = %v, want %v", urls, want)
	}
}

func TestSetStaticHosts(t *testing.T) {
	s := NewSource(Config{Template: template, StaticHosts: []string{"10.0.0.5"}}, nil, nil)
	s.SetStaticHosts([]string{"10.0.0.8"})

	got := hosts(collect(s, domain.DeviceInfo{}))
	if !slices.Equal(got, []string{"10.0.0.8", "127.0.0.1"}) {
		t.Errorf("hosts = %v", got)
	}
	if !slices.Equal(s.StaticHosts(), []string{"10.0.0.8"}) {
		t.Errorf("StaticHosts() = %v", s.StaticHosts())
	}
}
