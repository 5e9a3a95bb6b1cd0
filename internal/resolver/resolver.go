// Package resolver decides which backend endpoint the client uses.
//
// Resolve answers synchronously from the highest-precedence source available
// (forced endpoint, manual override, cached endpoint, hard default) and, when
// the answer is provisional, starts a background discovery pass that probes
// candidates and refreshes the cache for later calls.
//
// Every override, clear or reset bumps a generation counter. A pass remembers
// the generation it started under and its result is dropped if the counter has
// moved on by the time it finishes.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"waypoint/internal/cache"
	"waypoint/internal/candidate"
	"waypoint/internal/domain"
	"waypoint/internal/netinfo"
	"waypoint/internal/prober"
	"waypoint/internal/service"
)

// Resolver owns the authoritative endpoint for one client instance
type Resolver struct {
	cache     *cache.Cache
	source    *candidate.Source
	checker   prober.Checker
	netinfo   netinfo.Provider
	scheduler Scheduler
	events    *service.EventBus
	now       func() time.Time

	maxConcurrent int
	defaultEP     domain.Endpoint
	discovery     bool

	generation atomic.Uint64

	mu        sync.Mutex
	forced    *domain.Endpoint
	current   domain.ResolutionState
	confirmed *domain.Endpoint // probe-confirmed in the current generation
	passing   bool
	passGen   uint64
	rearm     bool
}

// New creates a resolver. defaultEP is returned while nothing better is known.
func New(c *cache.Cache, src *candidate.Source, checker prober.Checker, info netinfo.Provider, defaultEP domain.Endpoint, opts ...Option) *Resolver {
	r := &Resolver{
		cache:         c,
		source:        src,
		checker:       checker,
		netinfo:       info,
		scheduler:     SyncScheduler{},
		now:           time.Now,
		maxConcurrent: prober.DefaultMaxConcurrent,
		defaultEP:     defaultEP,
		discovery:     true,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.current = domain.ResolutionState{
		Endpoint:    defaultEP,
		Provenance:  domain.ProvenanceDefault,
		Provisional: true,
	}
	return r
}

// Resolve returns an immediately usable endpoint. It never fails: with no
// override, cache or network info it returns the hard default. A provisional
// answer schedules a background discovery pass unless one is already running.
func (r *Resolver) Resolve(ctx context.Context) domain.ResolutionState {
	r.mu.Lock()
	gen := r.generation.Load()
	state, discover := r.fastPath(ctx, gen)
	r.current = state

	start := false
	if discover && r.discovery {
		switch {
		case !r.passing:
			r.passing = true
			r.passGen = gen
			start = true
		case r.passGen != gen:
			// The running pass is stale; run again once it finishes
			r.rearm = true
		}
	}
	r.mu.Unlock()

	r.publish(service.EventResolved, state)
	if start {
		r.schedule(gen)
	}
	return state
}

// fastPath picks the answer without probing; caller holds mu
func (r *Resolver) fastPath(ctx context.Context, gen uint64) (domain.ResolutionState, bool) {
	state := domain.ResolutionState{Generation: gen, ResolvedAt: r.now()}

	if r.forced != nil {
		state.Endpoint = *r.forced
		state.Provenance = domain.ProvenanceForced
		return state, false
	}

	override, err := r.cache.Override(ctx)
	if err != nil {
		log.Printf("Resolver: failed to read override: %v", err)
	}
	if override != nil {
		state.Endpoint = *override
		state.Provenance = domain.ProvenanceManual
		return state, false
	}

	cached, err := r.cache.Get(ctx)
	if err != nil {
		log.Printf("Resolver: failed to read cache: %v", err)
	}
	if cached != nil {
		state.Endpoint = *cached
		if r.confirmed != nil && *r.confirmed == *cached {
			state.Provenance = domain.ProvenanceProbed
			return state, false
		}
		state.Provenance = domain.ProvenanceCache
		state.Provisional = true
		return state, true
	}

	state.Endpoint = r.defaultEP
	state.Provenance = domain.ProvenanceDefault
	state.Provisional = true
	return state, true
}

func (r *Resolver) schedule(gen uint64) {
	err := r.scheduler.Go(fmt.Sprintf("discovery-%d", gen), func(ctx context.Context) {
		defer r.finishPass()
		r.runPass(ctx, gen)
	})
	if err != nil {
		log.Printf("Resolver: discovery not scheduled: %v", err)
		r.mu.Lock()
		r.passing = false
		r.rearm = false
		r.mu.Unlock()
	}
}

func (r *Resolver) finishPass() {
	r.mu.Lock()
	r.passing = false
	rearm := r.rearm
	r.rearm = false
	gen := r.generation.Load()
	if rearm {
		r.passing = true
		r.passGen = gen
	}
	r.mu.Unlock()

	if rearm {
		r.schedule(gen)
	}
}

func (r *Resolver) runPass(ctx context.Context, gen uint64) {
	started := r.now()
	r.publish(service.EventPassStarted, map[string]interface{}{
		"generation": gen,
	})

	dev := r.netinfo.DeviceInfo(ctx)
	log.Printf("Resolver: discovery pass %d started (transport=%s ip=%q)", gen, dev.Transport, dev.IP)

	pass := prober.NewPass(r.checker, r.maxConcurrent)
	res, summary, err := pass.RunFrom(ctx, func(ctx context.Context) iter.Seq[domain.Candidate] {
		return r.source.Candidates(ctx, dev)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoCandidateReachable) {
			log.Printf("Resolver: discovery pass %d: %v", gen, err)
		} else {
			log.Printf("Resolver: discovery pass %d aborted: %v", gen, err)
		}
		r.publish(service.EventPassFailed, map[string]interface{}{
			"generation": gen,
			"error":      err.Error(),
			"summary":    summary.String(),
		})
		return
	}

	state, ok := r.commit(ctx, gen, res)
	if !ok {
		r.publish(service.EventPassDiscarded, map[string]interface{}{
			"generation": gen,
			"endpoint":   res.Candidate.Endpoint.BaseURL(),
		})
		return
	}

	log.Printf("Resolver: discovery pass %d found %s via %s in %s (%s)",
		gen, res.Candidate.Endpoint, res.Candidate.Provenance, r.now().Sub(started).Round(time.Millisecond), summary)
	r.publish(service.EventPassComplete, state)
}

// commit writes a probe-confirmed endpoint to the cache unless the generation
// moved on or an override appeared while the pass ran
func (r *Resolver) commit(ctx context.Context, gen uint64, res domain.ProbeResult) (domain.ResolutionState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep := res.Candidate.Endpoint
	if cur := r.generation.Load(); cur != gen {
		log.Printf("Resolver: discarding stale result %s (generation %d, now %d)", ep, gen, cur)
		return domain.ResolutionState{}, false
	}
	if r.forced != nil {
		return domain.ResolutionState{}, false
	}
	override, err := r.cache.Override(ctx)
	if err != nil {
		log.Printf("Resolver: not caching %s, failed to read override: %v", ep, err)
		return domain.ResolutionState{}, false
	}
	if override != nil {
		log.Printf("Resolver: discarding %s, override %s is active", ep, override)
		return domain.ResolutionState{}, false
	}

	if err := r.cache.Set(ctx, ep); err != nil {
		log.Printf("Resolver: failed to cache %s: %v", ep, err)
		return domain.ResolutionState{}, false
	}
	now := r.now()
	if err := r.cache.RecordSuccess(ctx, ep.Host, now); err != nil {
		log.Printf("Resolver: failed to record success for %s: %v", ep.Host, err)
	}

	r.confirmed = &ep
	r.current = domain.ResolutionState{
		Endpoint:   ep,
		Provenance: domain.ProvenanceProbed,
		Generation: gen,
		ResolvedAt: now,
	}
	return r.current, true
}

// Override pins the endpoint to operator input: a bare host, host:port or a
// full base URL. The override is persisted, the cached endpoint is dropped and
// no probing happens.
func (r *Resolver) Override(ctx context.Context, input string) error {
	ep, err := domain.ParseOverride(input, r.defaultEP)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if err := r.cache.SetOverride(ctx, ep); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("persist override: %w", err)
	}
	if err := r.cache.Clear(ctx); err != nil {
		log.Printf("Resolver: failed to invalidate cache: %v", err)
	}
	gen := r.generation.Add(1)
	r.confirmed = nil
	r.rearm = false
	r.current = domain.ResolutionState{
		Endpoint:   ep,
		Provenance: domain.ProvenanceManual,
		Generation: gen,
		ResolvedAt: r.now(),
	}
	state := r.current
	r.mu.Unlock()

	log.Printf("Resolver: override set to %s", ep)
	r.publish(service.EventOverrideSet, state)
	return nil
}

// ClearOverride drops the override and the cached endpoint. The next Resolve
// starts discovery from scratch.
func (r *Resolver) ClearOverride(ctx context.Context) error {
	if err := r.forget(ctx, false); err != nil {
		return err
	}
	log.Printf("Resolver: override cleared")
	r.publish(service.EventOverrideCleared, r.Current())
	return nil
}

// Reset is ClearOverride that also forgets the probe history
func (r *Resolver) Reset(ctx context.Context) error {
	if err := r.forget(ctx, true); err != nil {
		return err
	}
	log.Printf("Resolver: reset")
	r.publish(service.EventReset, r.Current())
	return nil
}

func (r *Resolver) forget(ctx context.Context, history bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.cache.ClearOverride(ctx); err != nil {
		return fmt.Errorf("clear override: %w", err)
	}
	if err := r.cache.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	if history {
		if err := r.cache.ClearHistory(ctx); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
	}

	gen := r.generation.Add(1)
	r.confirmed = nil
	r.current = domain.ResolutionState{
		Endpoint:    r.defaultEP,
		Provenance:  domain.ProvenanceDefault,
		Generation:  gen,
		ResolvedAt:  r.now(),
		Provisional: true,
	}
	return nil
}

// SetForced pins or, with nil, unpins the configured forced endpoint
func (r *Resolver) SetForced(ep *domain.Endpoint) {
	r.mu.Lock()
	if ep != nil {
		cp := *ep
		ep = &cp
	}
	r.forced = ep
	r.generation.Add(1)
	r.mu.Unlock()
}

// TestConnection probes ep directly without touching resolver state
func (r *Resolver) TestConnection(ctx context.Context, ep domain.Endpoint) bool {
	res := r.checker.Probe(ctx, domain.NewCandidate(ep, domain.ProvenanceManual))
	if !res.Reachable {
		log.Printf("Resolver: test connection to %s failed (%s): %v", ep, res.ErrorKind, res.Err)
	}
	return res.Reachable
}

// Current returns the last authoritative state without resolving
func (r *Resolver) Current() domain.ResolutionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Generation returns the current generation counter
func (r *Resolver) Generation() uint64 {
	return r.generation.Load()
}

// Close stops background work and waits for running passes
func (r *Resolver) Close() error {
	return r.scheduler.Close()
}

func (r *Resolver) publish(t service.EventType, payload interface{}) {
	if r.events != nil {
		r.events.Publish(service.Event{Type: t, Payload: payload})
	}
}
