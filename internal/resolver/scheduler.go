package resolver

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"
)

// ErrSchedulerClosed is returned by Go after Close
var ErrSchedulerClosed = errors.New("scheduler closed")

// Scheduler runs background discovery passes
type Scheduler interface {
	// Go runs fn detached from the caller
	Go(name string, fn func(ctx context.Context)) error

	// Close cancels running work and waits for it to return
	Close() error
}

// SyncScheduler runs work inline on the calling goroutine
type SyncScheduler struct{}

func (SyncScheduler) Go(name string, fn func(ctx context.Context)) error {
	fn(context.Background())
	return nil
}

func (SyncScheduler) Close() error { return nil }

// SupervisorScheduler runs each job as a one-shot service under a suture
// supervisor. Jobs are never restarted; a panicking job is logged and dropped.
type SupervisorScheduler struct {
	mu     sync.Mutex
	closed bool
	sup    *suture.Supervisor
	cancel context.CancelFunc
	done   <-chan error
	wg     sync.WaitGroup
}

// NewSupervisorScheduler starts a supervisor named name
func NewSupervisorScheduler(name string) *SupervisorScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	sup := suture.New(name, suture.Spec{
		EventHook: func(e suture.Event) {
			log.Printf("Scheduler: %s", e)
		},
		Timeout: 10 * time.Second,
	})
	return &SupervisorScheduler{
		sup:    sup,
		cancel: cancel,
		done:   sup.ServeBackground(ctx),
	}
}

func (s *SupervisorScheduler) Go(name string, fn func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	s.wg.Add(1)
	s.sup.Add(&oneShot{name: name, fn: fn, done: s.wg.Done})
	return nil
}

func (s *SupervisorScheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	if err := <-s.done; err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Scheduler: supervisor stopped: %v", err)
	}
	return nil
}

type oneShot struct {
	name string
	fn   func(ctx context.Context)
	once sync.Once
	done func()
}

func (o *oneShot) Serve(ctx context.Context) (err error) {
	defer o.once.Do(o.done)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Scheduler: %s panicked: %v", o.name, r)
		}
		err = suture.ErrDoNotRestart
	}()
	o.fn(ctx)
	return suture.ErrDoNotRestart
}

func (o *oneShot) String() string {
	return o.name
}
