package adapter

import "context"

// EventPublisher allows adapters to publish progress events
type EventPublisher interface {
	PublishDiscoveryEvent(eventType string, payload interface{})
}

// HostSweeper reports hosts that look alive in a subnet
type HostSweeper interface {
	// Name returns the unique identifier for this sweeper
	Name() string

	// LiveHosts returns live IPv4 addresses in cidr, sorted
	LiveHosts(ctx context.Context, cidr string) ([]string, error)
}
