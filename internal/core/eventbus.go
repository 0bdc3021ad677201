package core

import "sync"

// EventType defines the type of event being published.
type EventType string

const (
	StatusChangedEvent       EventType = "StatusChanged"
	EffectListChangedEvent   EventType = "EffectListChanged"
	PatternListChangedEvent  EventType = "PatternListChanged"
	ScheduleListChangedEvent EventType = "ScheduleListChanged"
	PatternCodeEvent         EventType = "PatternCode"
)

// Event is the envelope for all system events.
type Event struct {
	Type    EventType
	Payload any
}

// PatternCode is the payload of PatternCodeEvent.
type PatternCode struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Subscriber is a channel that receives events.
type Subscriber chan Event

const subscriberBuffer = 100

// EventBus fans events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	dropped     uint64
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe returns a channel that receives events of the given types.
func (eb *EventBus) Subscribe(eventTypes ...EventType) Subscriber {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(Subscriber, subscriberBuffer)
	for _, t := range eventTypes {
		eb.subscribers[t] = append(eb.subscribers[t], ch)
	}
	return ch
}

// Unsubscribe removes ch from the given types.
func (eb *EventBus) Unsubscribe(ch Subscriber, eventTypes ...EventType) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, t := range eventTypes {
		subs := eb.subscribers[t]
		for i, sub := range subs {
			if sub == ch {
				eb.subscribers[t] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Publish distributes an event to every subscriber of its type.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	subs := eb.subscribers[event.Type]
	missed := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			missed++
		}
	}
	eb.mu.RUnlock()

	if missed > 0 {
		eb.mu.Lock()
		eb.dropped += uint64(missed)
		eb.mu.Unlock()
	}
}

// Dropped counts deliveries skipped because a subscriber was full.
func (eb *EventBus) Dropped() uint64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return eb.dropped
}
