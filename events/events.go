// Copyright 2026 Arian Motamedi
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package events

import (
	"sync"
	"sync/atomic"
)

// Level represents the severity of an emitted event.
type Level int

const (
	// LevelInformational is the level of ordinary lifecycle events.
	LevelInformational Level = iota + 1
	// LevelError is the level of failure events.
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelInformational:
		return "Informational"
	case LevelError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ID identifies an event. IDs are stable per event name and never reused.
type ID int

// Well-known event identifiers.
const (
	EventHostStart          ID = 1
	EventHostStop           ID = 2
	EventRequestStart       ID = 3
	EventRequestStop        ID = 4
	EventUnhandledException ID = 5
)

var eventNames = map[ID]string{
	EventHostStart:          "HostStart",
	EventHostStop:           "HostStop",
	EventRequestStart:       "RequestStart",
	EventRequestStop:        "RequestStop",
	EventUnhandledException: "UnhandledException",
}

// Name returns the stable name for the event identifier.
func (id ID) Name() string {
	return eventNames[id]
}

// Event is a single structured lifecycle event. Events carry no free-text
// message; all variable data travels in the ordered Payload.
type Event struct {
	ID      ID
	Name    string
	Level   Level
	Payload []string // ordered, size-stable per event name; nil when the event has no payload
}

// Listener receives events from a [Channel]. OnEvent is called
// synchronously on the emitting goroutine and must be safe for
// concurrent invocation.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to the [Listener] interface.
type ListenerFunc func(Event)

// OnEvent calls f(e).
func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Channel is a structured, leveled event emission channel. The zero
// value is not usable; create one with [NewChannel].
type Channel struct {
	mu        sync.RWMutex
	listeners map[uint64]Listener
	nextID    uint64
	count     atomic.Int64 // mirrors len(listeners) for a lock-free Enabled check
}

// NewChannel creates an event channel with no listeners. Emitting on a
// channel with no listeners is a no-op, not an error.
func NewChannel() *Channel {
	return &Channel{
		listeners: make(map[uint64]Listener),
	}
}

// Subscribe registers a listener and returns a cancel function that
// removes it. Cancel is idempotent. The listener receives every event
// emitted between Subscribe and cancel; events emitted before Subscribe
// are never replayed.
func (c *Channel) Subscribe(l Listener) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()
	c.count.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
			c.count.Add(-1)
		})
	}
}

// Enabled reports whether at least one listener is subscribed. Callers
// can use it to skip payload construction when nobody is listening.
func (c *Channel) Enabled() bool {
	return c.count.Load() > 0
}

// emit delivers e to every currently subscribed listener. The read lock
// is held for the duration of delivery, so concurrent emission from
// other goroutines proceeds in parallel while subscription changes wait.
// Listener panics are not recovered here; they propagate to the caller.
func (c *Channel) emit(e Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range c.listeners {
		l.OnEvent(e)
	}
}

// HostStart signals that the host has started accepting requests.
func (c *Channel) HostStart() {
	if !c.Enabled() {
		return
	}
	c.emit(Event{ID: EventHostStart, Name: EventHostStart.Name(), Level: LevelInformational})
}

// HostStop signals that the host has stopped.
func (c *Channel) HostStop() {
	if !c.Enabled() {
		return
	}
	c.emit(Event{ID: EventHostStop, Name: EventHostStop.Name(), Level: LevelInformational})
}

// RequestStart signals the start of a request. The payload is always
// exactly [method, path] in that order; an absent path is emitted as the
// empty string so the payload shape stays size-stable.
func (c *Channel) RequestStart(method, path string) {
	if !c.Enabled() {
		return
	}
	c.emit(Event{
		ID:      EventRequestStart,
		Name:    EventRequestStart.Name(),
		Level:   LevelInformational,
		Payload: []string{method, path},
	})
}

// RequestStop signals the completion of a request.
func (c *Channel) RequestStop() {
	if !c.Enabled() {
		return
	}
	c.emit(Event{ID: EventRequestStop, Name: EventRequestStop.Name(), Level: LevelInformational})
}

// UnhandledException signals that a request terminated with an
// unhandled error.
func (c *Channel) UnhandledException() {
	if !c.Enabled() {
		return
	}
	c.emit(Event{ID: EventUnhandledException, Name: EventUnhandledException.Name(), Level: LevelError})
}
