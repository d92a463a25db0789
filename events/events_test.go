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
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingListener captures events for assertions. Safe for concurrent
// emission.
type recordingListener struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingListener) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingListener) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func TestEventIdentifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   ID
		name string
	}{
		{EventHostStart, "HostStart"},
		{EventHostStop, "HostStop"},
		{EventRequestStart, "RequestStart"},
		{EventRequestStop, "RequestStop"},
		{EventUnhandledException, "UnhandledException"},
	}

	for i, tt := range tests {
		assert.Equal(t, ID(i+1), tt.id, "identifiers are stable and sequential")
		assert.Equal(t, tt.name, tt.id.Name())
	}
}

func TestChannelNoListeners(t *testing.T) {
	t.Parallel()

	ch := NewChannel()
	assert.False(t, ch.Enabled())

	// Emitting without listeners must not fail.
	ch.HostStart()
	ch.RequestStart("GET", "/orders")
	ch.RequestStop()
	ch.UnhandledException()
	ch.HostStop()
}

func TestChannelSubscribeAndEmit(t *testing.T) {
	t.Parallel()

	ch := NewChannel()
	listener := &recordingListener{}
	cancel := ch.Subscribe(listener)
	defer cancel()

	require.True(t, ch.Enabled())

	ch.HostStart()
	ch.RequestStart("GET", "/orders/42")
	ch.RequestStop()
	ch.HostStop()

	got := listener.snapshot()
	require.Len(t, got, 4)

	assert.Equal(t, EventHostStart, got[0].ID)
	assert.Equal(t, LevelInformational, got[0].Level)
	assert.Nil(t, got[0].Payload)

	assert.Equal(t, EventRequestStart, got[1].ID)
	assert.Equal(t, "RequestStart", got[1].Name)
	assert.Equal(t, []string{"GET", "/orders/42"}, got[1].Payload)

	assert.Equal(t, EventRequestStop, got[2].ID)
	assert.Equal(t, EventHostStop, got[3].ID)
}

func TestRequestStartPayloadShape(t *testing.T) {
	t.Parallel()

	ch := NewChannel()
	listener := &recordingListener{}
	cancel := ch.Subscribe(listener)
	defer cancel()

	// An absent path still yields a two-element payload.
	ch.RequestStart("POST", "")

	got := listener.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, []string{"POST", ""}, got[0].Payload)
}

func TestUnhandledExceptionLevel(t *testing.T) {
	t.Parallel()

	ch := NewChannel()
	listener := &recordingListener{}
	cancel := ch.Subscribe(listener)
	defer cancel()

	ch.UnhandledException()

	got := listener.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, EventUnhandledException, got[0].ID)
	assert.Equal(t, LevelError, got[0].Level)
	assert.Equal(t, "Error", got[0].Level.String())
}

func TestMultipleListenersAllReceive(t *testing.T) {
	t.Parallel()

	ch := NewChannel()
	first := &recordingListener{}
	second := &recordingListener{}
	cancelFirst := ch.Subscribe(first)
	defer cancelFirst()
	cancelSecond := ch.Subscribe(second)
	defer cancelSecond()

	ch.RequestStart("GET", "/health")

	require.Len(t, first.snapshot(), 1)
	require.Len(t, second.snapshot(), 1)
}

func TestNoReplayForLateSubscriber(t *testing.T) {
	t.Parallel()

	ch := NewChannel()
	early := &recordingListener{}
	cancelEarly := ch.Subscribe(early)
	defer cancelEarly()

	ch.HostStart()

	late := &recordingListener{}
	cancelLate := ch.Subscribe(late)
	defer cancelLate()

	ch.RequestStart("GET", "/")

	assert.Len(t, early.snapshot(), 2)
	// The late subscriber sees only what was emitted after it joined.
	got := late.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, EventRequestStart, got[0].ID)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	ch := NewChannel()
	listener := &recordingListener{}
	cancel := ch.Subscribe(listener)

	ch.HostStart()
	cancel()
	cancel() // Idempotent
	ch.HostStop()

	assert.False(t, ch.Enabled())
	got := listener.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, EventHostStart, got[0].ID)
}

func TestConcurrentEmission(t *testing.T) {
	t.Parallel()

	ch := NewChannel()
	listener := &recordingListener{}
	cancel := ch.Subscribe(listener)
	defer cancel()

	const goroutines = 8
	const perGoroutine = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				ch.RequestStart("GET", "/load")
				ch.RequestStop()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, listener.snapshot(), goroutines*perGoroutine*2)
}

func TestListenerFunc(t *testing.T) {
	t.Parallel()

	ch := NewChannel()
	var received Event
	cancel := ch.Subscribe(ListenerFunc(func(e Event) {
		received = e
	}))
	defer cancel()

	ch.HostStart()
	assert.Equal(t, EventHostStart, received.ID)
}

func TestListenerPanicPropagates(t *testing.T) {
	t.Parallel()

	ch := NewChannel()
	cancel := ch.Subscribe(ListenerFunc(func(Event) {
		panic("listener failure")
	}))
	defer cancel()

	assert.PanicsWithValue(t, "listener failure", func() {
		ch.HostStart()
	})
}

func TestLogListener(t *testing.T) {
	t.Parallel()

	// Nil loggers degrade to a no-op listener rather than panicking.
	listener := NewLogListener(nil)
	listener.OnEvent(Event{ID: EventHostStart, Name: "HostStart", Level: LevelInformational})

	listener = NewLogListener(slog.Default())
	listener.OnEvent(Event{
		ID:      EventRequestStart,
		Name:    "RequestStart",
		Level:   LevelInformational,
		Payload: []string{"GET", "/"},
	})
	listener.OnEvent(Event{ID: EventUnhandledException, Name: "UnhandledException", Level: LevelError})
}
