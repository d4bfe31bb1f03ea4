// Package device models the environment signals the storefront reacts to: backend
// connectivity, device orientation and the torch.
package device

import (
	"errors"
	"sync"
	"time"

	EventBus "github.com/asaskevich/EventBus"
)

// Signal topics.
const (
	TopicConnectivity = "device:connectivity"
	TopicOrientation  = "device:orientation"
)

// ErrUnknownTopic is returned when subscribing to a topic the hub does not publish.
var ErrUnknownTopic = errors.New("device: unknown topic")

// Orientation is a device attitude in degrees.
type Orientation struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Event is a signal change delivered to subscribers.
type Event struct {
	Topic       string      `json:"topic"`
	Online      bool        `json:"online"`
	Orientation Orientation `json:"orientation"`
	At          time.Time   `json:"at"`
}

// Environment is the read side of the signals plus change notification. Handlers
// subscribe when a screen opens and call the returned func when it closes.
type Environment interface {
	Online() bool
	Orientation() Orientation
	Subscribe(topic string, fn func(Event)) (func(), error)
}

// Hub implements Environment on an event bus.
type Hub struct {
	bus EventBus.Bus

	mu          sync.RWMutex
	online      bool
	orientation Orientation
	nextID      uint64
	subs        map[string]map[uint64]func(Event)
}

var _ Environment = (*Hub)(nil)

// NewHub returns a hub that starts online with a flat orientation.
func NewHub() *Hub {
	h := &Hub{
		bus:    EventBus.New(),
		online: true,
		subs: map[string]map[uint64]func(Event){
			TopicConnectivity: {},
			TopicOrientation:  {},
		},
	}
	// The bus matches handlers by function pointer on unsubscribe, so it only ever sees
	// one dispatcher per topic and the hub tracks individual subscribers itself.
	for topic := range h.subs {
		_ = h.bus.Subscribe(topic, h.dispatch)
	}
	return h
}

// Online reports the last published connectivity.
func (h *Hub) Online() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.online
}

// Orientation reports the last published orientation.
func (h *Hub) Orientation() Orientation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.orientation
}

// Subscribe registers fn for topic.
func (h *Hub) Subscribe(topic string, fn func(Event)) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subs[topic]
	if !ok {
		return nil, ErrUnknownTopic
	}
	h.nextID++
	id := h.nextID
	subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[topic], id)
			h.mu.Unlock()
		})
	}, nil
}

// SetOnline records connectivity and notifies subscribers when it changed.
func (h *Hub) SetOnline(online bool) {
	h.mu.Lock()
	changed := h.online != online
	h.online = online
	h.mu.Unlock()
	if changed {
		h.bus.Publish(TopicConnectivity, Event{Topic: TopicConnectivity, Online: online, At: time.Now().UTC()})
	}
}

// SetOrientation records a reading and notifies subscribers when it changed.
func (h *Hub) SetOrientation(o Orientation) {
	h.mu.Lock()
	changed := h.orientation != o
	h.orientation = o
	online := h.online
	h.mu.Unlock()
	if changed {
		h.bus.Publish(TopicOrientation, Event{Topic: TopicOrientation, Online: online, Orientation: o, At: time.Now().UTC()})
	}
}

func (h *Hub) dispatch(ev Event) {
	h.mu.RLock()
	fns := make([]func(Event), 0, len(h.subs[ev.Topic]))
	for _, fn := range h.subs[ev.Topic] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribers returns the number of live subscribers on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
