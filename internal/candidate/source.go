// Package candidate produces the ordered list of endpoint guesses a discovery
// pass probes.
//
// The order is a ranking, not a promise: manual override, cached endpoint,
// guesses on the device's /24 (gateway-likely hosts first), the static host
// list ranked by probe history, and finally loopback.
package candidate

import (
	"context"
	"fmt"
	"iter"
	"log"
	"net"
	"slices"
	"sync"

	"waypoint/internal/adapter"
	"waypoint/internal/domain"
)

// DefaultPriorityOctets are last octets tried first on the device's /24.
// Routers and the usual static server assignments sit at these addresses.
var DefaultPriorityOctets = []int{1, 100, 10, 50, 101, 254}

// DefaultSequentialScan is how many addresses from .2 upward are tried after
// the priority octets
const DefaultSequentialScan = 8

const loopbackHost = "127.0.0.1"

// Slots exposes the persisted override and cached endpoint
type Slots interface {
	Override(ctx context.Context) (*domain.Endpoint, error)
	Get(ctx context.Context) (*domain.Endpoint, error)
}

// History ranks hosts by how recently they passed a health check
type History interface {
	RecentHosts(ctx context.Context) ([]string, error)
}

// Config controls candidate generation
type Config struct {
	// Template supplies scheme, port and path prefix for bare-host guesses
	Template       domain.Endpoint
	StaticHosts    []string
	PriorityOctets []int
	SequentialScan int
}

// Source generates candidates
type Source struct {
	mu      sync.RWMutex
	config  Config
	slots   Slots
	history History
	sweeper adapter.HostSweeper
}

// NewSource creates a candidate source. slots and history may be nil.
func NewSource(config Config, slots Slots, history History) *Source {
	if config.PriorityOctets == nil {
		config.PriorityOctets = DefaultPriorityOctets
	}
	if config.SequentialScan < 0 {
		config.SequentialScan = 0
	}
	return &Source{
		config:  config,
		slots:   slots,
		history: history,
	}
}

// SetSweeper enables live-host ranking on the device subnet
func (s *Source) SetSweeper(sw adapter.HostSweeper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweeper = sw
}

// SetStaticHosts replaces the static host list
func (s *Source) SetStaticHosts(hosts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.StaticHosts = slices.Clone(hosts)
}

// StaticHosts returns the configured static host list
func (s *Source) StaticHosts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.config.StaticHosts)
}

// Candidates returns a lazy, finite sequence of candidates for the given
// device. Each iteration re-reads the persisted slots, so the sequence can be
// ranged over again to restart from the top. Without a device IP the
// network-range step is skipped.
func (s *Source) Candidates(ctx context.Context, dev domain.DeviceInfo) iter.Seq[domain.Candidate] {
	s.mu.RLock()
	config := s.config
	config.StaticHosts = slices.Clone(s.config.StaticHosts)
	sweeper := s.sweeper
	s.mu.RUnlock()

	return func(yield func(domain.Candidate) bool) {
		seen := make(map[string]bool)
		emit := func(ep domain.Endpoint, p domain.Provenance) bool {
			key := ep.BaseURL()
			if seen[key] {
				return true
			}
			seen[key] = true
			return yield(domain.NewCandidate(ep, p))
		}

		// 1, 2: persisted slots
		if s.slots != nil {
			if ep, err := s.slots.Override(ctx); err != nil {
				log.Printf("Candidates: failed to read override: %v", err)
			} else if ep != nil && !emit(*ep, domain.ProvenanceManual) {
				return
			}
			if ep, err := s.slots.Get(ctx); err != nil {
				log.Printf("Candidates: failed to read cache: %v", err)
			} else if ep != nil && !emit(*ep, domain.ProvenanceCached) {
				return
			}
		}

		// 3: device /24
		if ip := dev.IPv4(); ip != nil {
			for _, host := range rangeHosts(ip, dev.Gateway, config.PriorityOctets) {
				if !emit(config.Template.WithHost(host), domain.ProvenanceNetworkRange) {
					return
				}
			}

			if sweeper != nil && ctx.Err() == nil {
				cidr := fmt.Sprintf("%d.%d.%d.0/24", ip[0], ip[1], ip[2])
				live, err := sweeper.LiveHosts(ctx, cidr)
				if ctx.Err() != nil {
					return
				}
				if err != nil {
					log.Printf("Candidates: %s sweep of %s failed: %v", sweeper.Name(), cidr, err)
				}
				for _, host := range live {
					if host == ip.String() {
						continue
					}
					if !emit(config.Template.WithHost(host), domain.ProvenanceNetworkRange) {
						return
					}
				}
			}

			for _, host := range sequentialHosts(ip, config.SequentialScan) {
				if !emit(config.Template.WithHost(host), domain.ProvenanceNetworkRange) {
					return
				}
			}
		}

		// 4: static list, most recently working first
		for _, ep := range s.rankedStatic(ctx, config) {
			if !emit(ep, domain.ProvenanceStaticList) {
				return
			}
		}

		// 5: loopback
		emit(config.Template.WithHost(loopbackHost), domain.ProvenanceLoopback)
	}
}

// rangeHosts returns gateway-likely hosts on ip's /24: the detected gateway
// when it shares the subnet, then the priority octets. ip itself is skipped.
func rangeHosts(ip net.IP, gateway string, octets []int) []string {
	var hosts []string
	self := ip.String()

	if gw := net.ParseIP(gateway).To4(); gw != nil && gw[0] == ip[0] && gw[1] == ip[1] && gw[2] == ip[2] {
		if gw.String() != self {
			hosts = append(hosts, gw.String())
		}
	}

	for _, o := range octets {
		if o < 1 || o > 254 {
			continue
		}
		h := fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], o)
		if h != self {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// sequentialHosts returns n addresses from .2 upward, skipping ip itself
func sequentialHosts(ip net.IP, n int) []string {
	var hosts []string
	self := ip.String()
	for o := 2; o < 255 && len(hosts) < n; o++ {
		h := fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], o)
		if h == self {
			continue
		}
		hosts = append(hosts, h)
	}
	return hosts
}

// rankedStatic orders the static list by probe history: static entries that
// worked recently first, then the rest in configured order, then other hosts
// from history that are not in the static list
func (s *Source) rankedStatic(ctx context.Context, config Config) []domain.Endpoint {
	static := make([]domain.Endpoint, 0, len(config.StaticHosts))
	byHost := make(map[string][]int)
	for _, raw := range config.StaticHosts {
		ep, err := domain.ParseOverride(raw, config.Template)
		if err != nil {
			log.Printf("Candidates: skipping static host %q: %v", raw, err)
			continue
		}
		byHost[ep.Host] = append(byHost[ep.Host], len(static))
		static = append(static, ep)
	}

	var recent []string
	if s.history != nil {
		var err error
		recent, err = s.history.RecentHosts(ctx)
		if err != nil {
			log.Printf("Candidates: failed to read probe history: %v", err)
		}
	}

	out := make([]domain.Endpoint, 0, len(static)+len(recent))
	used := make([]bool, len(static))
	for _, host := range recent {
		for _, i := range byHost[host] {
			if !used[i] {
				used[i] = true
				out = append(out, static[i])
			}
		}
	}
	for i, ep := range static {
		if !used[i] {
			out = append(out, ep)
		}
	}
	for _, host := range recent {
		if _, ok := byHost[host]; ok || !domain.ValidHost(host) {
			continue
		}
		out = append(out, config.Template.WithHost(host))
	}
	return out
}
