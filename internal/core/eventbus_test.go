package core

import "testing"

func TestEventBusRouting(t *testing.T) {
	eb := NewEventBus()
	status := eb.Subscribe(StatusChangedEvent)
	both := eb.Subscribe(StatusChangedEvent, EffectListChangedEvent)

	eb.Publish(Event{Type: EffectListChangedEvent, Payload: []string{"rainbow"}})
	eb.Publish(Event{Type: StatusChangedEvent, Payload: "on"})

	if ev := <-both; ev.Type != EffectListChangedEvent {
		t.Errorf("first event = %v", ev.Type)
	}
	if ev := <-both; ev.Type != StatusChangedEvent {
		t.Errorf("second event = %v", ev.Type)
	}
	if ev := <-status; ev.Payload != "on" {
		t.Errorf("status payload = %v", ev.Payload)
	}
	if len(status) != 0 {
		t.Error("status subscriber received an effect list event")
	}
}

func TestEventBusNeverBlocks(t *testing.T) {
	eb := NewEventBus()
	sub := eb.Subscribe(StatusChangedEvent)

	for i := 0; i < subscriberBuffer+5; i++ {
		eb.Publish(Event{Type: StatusChangedEvent})
	}
	if len(sub) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(sub), subscriberBuffer)
	}
	if eb.Dropped() != 5 {
		t.Errorf("Dropped = %d, want 5", eb.Dropped())
	}
}

func TestUnsubscribe(t *testing.T) {
	eb := NewEventBus()
	a := eb.Subscribe(StatusChangedEvent)
	b := eb.Subscribe(StatusChangedEvent)
	eb.Unsubscribe(a, StatusChangedEvent)

	eb.Publish(Event{Type: StatusChangedEvent})
	if len(a) != 0 || len(b) != 1 {
		t.Errorf("a got %d, b got %d", len(a), len(b))
	}
}
