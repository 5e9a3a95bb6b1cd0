package adapter

import "time"

// NmapOption is a functional option for configuring NmapSweeper
type NmapOption func(*NmapSweeper)

// WithTimeout bounds the whole sweep
func WithTimeout(d time.Duration) NmapOption {
	return func(n *NmapSweeper) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithBackendPort makes the sweep check a single TCP port (-p PORT -Pn)
// instead of a ping scan. Useful for networks that block ICMP.
func WithBackendPort(port int) NmapOption {
	return func(n *NmapSweeper) {
		if port > 0 && port <= 65535 {
			n.port = port
		}
	}
}

// WithPublisher sets the event publisher at construction time
func WithPublisher(pub EventPublisher) NmapOption {
	return func(n *NmapSweeper) {
		n.publisher = pub
	}
}
