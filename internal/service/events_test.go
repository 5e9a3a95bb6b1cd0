package service

import "testing"

func TestEventBusPublish(t *testing.T) {
	eb := NewEventBus()
	a := make(chan Event, 1)
	b := make(chan Event, 1)
	eb.Subscribe(a)
	eb.Subscribe(b)

	eb.Publish(Event{Type: EventResolved, Payload: "x"})

	for name, ch := range map[string]chan Event{"a": a, "b": b} {
		select {
		case ev := <-ch:
			if ev.Type != EventResolved {
				t.Errorf("%s got %s", name, ev.Type)
			}
		default:
			t.Errorf("%s received nothing", name)
		}
	}
}

func TestEventBusSkipsSlowSubscriber(t *testing.T) {
	eb := NewEventBus()
	slow := make(chan Event)
	fast := make(chan Event, 1)
	eb.Subscribe(slow)
	eb.Subscribe(fast)

	eb.Publish(Event{Type: EventReset})

	if len(fast) != 1 {
		t.Error("fast subscriber should still receive the event")
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	eb := NewEventBus()
	ch := make(chan Event, 1)
	eb.Subscribe(ch)
	eb.Unsubscribe(ch)

	eb.Publish(Event{Type: EventReset})

	if len(ch) != 0 {
		t.Error("unsubscribed channel received an event")
	}
}

func TestPublishDiscoveryEvent(t *testing.T) {
	eb := NewEventBus()
	ch := make(chan Event, 1)
	eb.Subscribe(ch)

	eb.PublishDiscoveryEvent("sweep-started", map[string]string{"cidr": "10.0.0.0/24"})

	ev := <-ch
	if ev.Type != "sweep-started" {
		t.Errorf("type = %s", ev.Type)
	}
}
