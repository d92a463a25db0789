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

// Package events provides the structured event channel for host and
// request lifecycle signals.
//
// A [Channel] emits named, identified, leveled events to every listener
// subscribed at the moment of the call. Delivery is synchronous and
// fan-out: each listener receives every event independently, and a
// listener that subscribes after an event was emitted never sees it.
// There is no buffering or replay.
//
// # Basic Usage
//
//	ch := events.NewChannel()
//	cancel := ch.Subscribe(events.NewLogListener(slog.Default()))
//	defer cancel()
//
//	ch.HostStart()
//	ch.RequestStart("GET", "/orders/42")
//	ch.RequestStop()
//	ch.HostStop()
//
// # Thread Safety
//
// All [Channel] methods are safe for concurrent use. Emitting from many
// goroutines at once is supported; subscription and unsubscription are
// serialized against delivery.
//
// # Listener Errors
//
// A panic raised by a listener propagates to the caller of the emitting
// method. The channel does not recover on a listener's behalf; a
// misbehaving listener is the listener's responsibility.
package events
