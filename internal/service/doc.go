// Package service carries resolution events from the resolver and sweep
// adapters to in-process subscribers.
//
// The EventBus is fire-and-forget: a subscriber whose channel is full misses
// the event rather than blocking the publisher. The SSE hub subscribes here and
// forwards every event to connected operator clients.
package service
