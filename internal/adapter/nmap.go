package adapter

import (
	"context"
	"fmt"
	"log"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
)

// NmapSweeper finds live hosts using nmap
type NmapSweeper struct {
	timeout   time.Duration
	port      int
	publisher EventPublisher

	mu        sync.Mutex
	checked   bool
	available bool
}

// NewNmapSweeper creates a new nmap-based sweeper
func NewNmapSweeper(opts ...NmapOption) *NmapSweeper {
	s := &NmapSweeper{
		timeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetEventPublisher sets the event publisher for progress updates
func (n *NmapSweeper) SetEventPublisher(pub EventPublisher) {
	n.publisher = pub
}

// publishProgress emits a sweep progress event
func (n *NmapSweeper) publishProgress(eventType string, payload interface{}) {
	if n.publisher != nil {
		n.publisher.PublishDiscoveryEvent(eventType, payload)
	}
}

// Name returns the sweeper identifier
func (n *NmapSweeper) Name() string {
	return "nmap"
}

// LiveHosts sweeps cidr and returns hosts that responded
func (n *NmapSweeper) LiveHosts(ctx context.Context, cidr string) ([]string, error) {
	if _, _, err := net.ParseCIDR(cidr); err != nil {
		return nil, fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	if !n.isNmapAvailable(ctx) {
		return nil, fmt.Errorf("nmap binary not found in PATH")
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	opts := []nmap.Option{
		nmap.WithTargets(cidr),
	}
	if n.port > 0 {
		opts = append(opts,
			nmap.WithPorts(strconv.Itoa(n.port)),
			nmap.WithSkipHostDiscovery(),
		)
	} else {
		opts = append(opts, nmap.WithPingScan())
	}

	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	log.Printf("Nmap: sweeping %s (port=%d)", cidr, n.port)
	n.publishProgress("sweep-started", map[string]interface{}{
		"cidr":    cidr,
		"message": fmt.Sprintf("Sweeping %s", cidr),
	})

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("sweep failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		log.Printf("Nmap: warnings for %s: %v", cidr, *warnings)
	}

	hosts := n.processResults(result)

	n.publishProgress("sweep-complete", map[string]interface{}{
		"cidr":       cidr,
		"discovered": len(hosts),
		"message":    fmt.Sprintf("Sweep complete: %d live hosts", len(hosts)),
	})
	log.Printf("Nmap: sweep of %s complete, %d live hosts", cidr, len(hosts))

	return hosts, nil
}

// isNmapAvailable checks once whether the nmap binary can run
func (n *NmapSweeper) isNmapAvailable(ctx context.Context) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.checked {
		return n.available
	}

	scanner, err := nmap.NewScanner(
		ctx,
		nmap.WithTargets("localhost"),
		nmap.WithListScan(),
	)
	if err == nil {
		_, _, err = scanner.Run()
	}
	n.available = err == nil
	n.checked = true

	if !n.available {
		log.Printf("Nmap: binary unavailable, sweeping disabled: %v", err)
	}
	return n.available
}

// processResults extracts live IPv4 addresses from a scan
func (n *NmapSweeper) processResults(result *nmap.Run) []string {
	if result == nil {
		return nil
	}

	var hosts []string
	for _, host := range result.Hosts {
		if host.Status.State != "up" && n.port == 0 {
			continue
		}

		var ip string
		for _, addr := range host.Addresses {
			if addr.AddrType == "ipv4" {
				ip = addr.Addr
				break
			}
		}
		if ip == "" {
			continue
		}

		if n.port > 0 && !portOpen(host.Ports, n.port) {
			continue
		}

		hosts = append(hosts, ip)
	}

	sort.Slice(hosts, func(i, j int) bool {
		return ipLess(hosts[i], hosts[j])
	})
	return hosts
}

func portOpen(ports []nmap.Port, want int) bool {
	for _, p := range ports {
		if int(p.ID) == want && p.State.State == "open" {
			return true
		}
	}
	return false
}

// ipLess orders dotted IPv4 strings numerically
func ipLess(a, b string) bool {
	ia, ib := net.ParseIP(a).To4(), net.ParseIP(b).To4()
	if ia == nil || ib == nil {
		return a < b
	}
	for i := 0; i < 4; i++ {
		if ia[i] != ib[i] {
			return ia[i] < ib[i]
		}
	}
	return false
}
