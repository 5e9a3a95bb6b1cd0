package watcher

import (
	"fmt"
	"log"
	"slices"

	"waypoint/internal/config"
	"waypoint/internal/domain"
	"waypoint/internal/service"
)

// StaticHostSetter receives a new static host list
type StaticHostSetter interface {
	SetStaticHosts(hosts []string)
}

// ForcedSetter receives a new forced endpoint, nil to unpin
type ForcedSetter interface {
	SetForced(ep *domain.Endpoint)
}

// Reloader re-reads the config file and pushes the fields that can change at
// runtime: static_hosts and forced_endpoint. Everything else needs a restart.
type Reloader struct {
	path   string
	hosts  StaticHostSetter
	forced ForcedSetter
	events *service.EventBus

	current *config.Config
}

// NewReloader creates a reloader seeded with the config already in effect
func NewReloader(path string, current *config.Config, hosts StaticHostSetter, forced ForcedSetter, events *service.EventBus) *Reloader {
	return &Reloader{
		path:    path,
		hosts:   hosts,
		forced:  forced,
		events:  events,
		current: current,
	}
}

// Reload loads the file and applies changed fields. An invalid file is
// rejected as a whole and the running config stays in effect.
func (r *Reloader) Reload() error {
	next, _, err := config.LoadFromPath(r.path)
	if err != nil {
		return fmt.Errorf("reload %s: %w", r.path, err)
	}

	var changed []string
	if !slices.Equal(next.StaticHosts, r.current.StaticHosts) {
		r.hosts.SetStaticHosts(next.StaticHosts)
		changed = append(changed, "static_hosts")
	}
	if next.ForcedEndpoint != r.current.ForcedEndpoint {
		forced, _ := next.Forced() // validated by LoadFromPath
		r.forced.SetForced(forced)
		changed = append(changed, "forced_endpoint")
	}
	r.current = next

	if len(changed) == 0 {
		return nil
	}
	log.Printf("Reloader: applied %v from %s", changed, r.path)
	if r.events != nil {
		r.events.Publish(service.Event{
			Type:    service.EventConfigReloaded,
			Payload: map[string]interface{}{"path": r.path, "changed": changed},
		})
	}
	return nil
}

// OnChange adapts Reload to Watcher's callback, logging failures
func (r *Reloader) OnChange() {
	if err := r.Reload(); err != nil {
		log.Printf("Reloader: %v", err)
	}
}
