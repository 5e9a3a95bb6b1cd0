package resolver

import (
	"time"

	"waypoint/internal/domain"
	"waypoint/internal/service"
)

// Option configures a Resolver
type Option func(*Resolver)

// WithScheduler sets where discovery passes run
func WithScheduler(s Scheduler) Option {
	return func(r *Resolver) {
		r.scheduler = s
	}
}

// WithEventBus publishes resolution events on bus
func WithEventBus(bus *service.EventBus) Option {
	return func(r *Resolver) {
		r.events = bus
	}
}

// WithForced pins every Resolve to ep
func WithForced(ep domain.Endpoint) Option {
	return func(r *Resolver) {
		r.forced = &ep
	}
}

// WithMaxConcurrentProbes bounds in-flight probes per pass
func WithMaxConcurrentProbes(n int) Option {
	return func(r *Resolver) {
		r.maxConcurrent = n
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithoutDiscovery never probes: Resolve answers from override, cache and the
// hard default only
func WithoutDiscovery() Option {
	return func(r *Resolver) {
		r.discovery = false
	}
}
