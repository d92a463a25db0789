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

import "log/slog"

// NewLogListener returns a [Listener] that logs events to the provided
// slog.Logger. Informational events log at Info, error events at Error.
// The event name and identifier are recorded as structured fields along
// with the payload, if any.
//
// If logger is nil, returns a no-op listener that discards all events.
func NewLogListener(logger *slog.Logger) Listener {
	if logger == nil {
		return ListenerFunc(func(Event) {}) // no-op
	}

	return ListenerFunc(func(e Event) {
		args := []any{"event_id", int(e.ID)}
		if len(e.Payload) > 0 {
			args = append(args, "payload", e.Payload)
		}
		switch e.Level {
		case LevelError:
			logger.Error(e.Name, args...)
		default:
			logger.Info(e.Name, args...)
		}
	})
}
