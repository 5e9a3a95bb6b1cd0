package prober

import (
	"context"
	"fmt"
	"iter"
	"log"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"waypoint/internal/domain"
)

// DefaultMaxConcurrent caps in-flight probes per discovery pass
const DefaultMaxConcurrent = 6

// Pass runs one discovery pass over a candidate sequence
type Pass struct {
	checker       Checker
	maxConcurrent int
}

// NewPass creates a pass runner with at most maxConcurrent probes in flight
func NewPass(checker Checker, maxConcurrent int) *Pass {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Pass{checker: checker, maxConcurrent: maxConcurrent}
}

// Summary aggregates the probes made during a pass
type Summary struct {
	Probed   int
	Failures map[domain.ErrorKind]int
}

func (s Summary) String() string {
	kinds := make([]string, 0, len(s.Failures))
	for k, n := range s.Failures {
		kinds = append(kinds, fmt.Sprintf("%s=%d", k, n))
	}
	sort.Strings(kinds)
	return fmt.Sprintf("probed=%d %s", s.Probed, strings.Join(kinds, " "))
}

// Run probes candidates in sequence order with bounded concurrency and returns
// the highest-precedence reachable result. A candidate only wins once every
// candidate ahead of it has failed, so ordering is preserved even though
// probes overlap. Remaining probes are cancelled as soon as a winner is known.
// Returns domain.ErrNoCandidateReachable when nothing answered.
func (p *Pass) Run(ctx context.Context, seq iter.Seq[domain.Candidate]) (domain.ProbeResult, Summary, error) {
	return p.RunFrom(ctx, func(context.Context) iter.Seq[domain.Candidate] { return seq })
}

// RunFrom is Run for sequences that block while producing candidates, such as
// one that sweeps the subnet. The sequence is built from the pass context, so
// it is cancelled as soon as a winner is known.
func (p *Pass) RunFrom(ctx context.Context, candidates func(ctx context.Context) iter.Seq[domain.Candidate]) (domain.ProbeResult, Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	seq := candidates(ctx)

	sem := semaphore.NewWeighted(int64(p.maxConcurrent))

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[int]domain.ProbeResult)
		winner  = -1
		next    int
	)

	// decide advances over the contiguous prefix of finished probes; caller
	// holds mu
	decide := func() {
		for i := 0; winner < 0; i++ {
			r, ok := results[i]
			if !ok {
				return
			}
			if r.Reachable {
				winner = i
				cancel()
			}
		}
	}

	for c := range seq {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		mu.Lock()
		done := winner >= 0
		mu.Unlock()
		if done {
			sem.Release(1)
			break
		}

		idx := next
		next++
		wg.Add(1)
		go func(c domain.Candidate) {
			defer wg.Done()
			defer sem.Release(1)

			r := p.checker.Probe(ctx, c)

			mu.Lock()
			results[idx] = r
			decide()
			mu.Unlock()
		}(c)
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	decide()

	summary := Summary{Failures: make(map[domain.ErrorKind]int)}
	for i := 0; i < next; i++ {
		r := results[i]
		if winner >= 0 && i > winner {
			// Cancelled or irrelevant once a higher-precedence host answered
			continue
		}
		summary.Probed++
		if !r.Reachable {
			summary.Failures[r.ErrorKind]++
		}
	}

	if winner >= 0 {
		return results[winner], summary, nil
	}

	// Without a winner ctx was never cancelled here, so any error is the caller's
	if err := ctx.Err(); err != nil {
		return domain.ProbeResult{}, summary, err
	}
	log.Printf("Prober: no candidate reachable (%s)", summary)
	return domain.ProbeResult{}, summary, fmt.Errorf("%w after %d probes", domain.ErrNoCandidateReachable, summary.Probed)
}
