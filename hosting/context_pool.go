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

package hosting

import "sync"

// contextPool reuses RequestContext instances across requests to avoid
// per-request allocation. Records are reset explicitly on reuse rather
// than relying on garbage collection.
type contextPool struct {
	pool sync.Pool
}

// newContextPool creates a new context pool.
func newContextPool() *contextPool {
	return &contextPool{
		pool: sync.Pool{
			New: func() any {
				return &RequestContext{}
			},
		},
	}
}

// Get retrieves a reset RequestContext, creating one if the pool is empty.
func (cp *contextPool) Get() *RequestContext {
	rc := cp.pool.Get().(*RequestContext)
	rc.reset()
	return rc
}

// Put resets a RequestContext and returns it to the pool. Resetting
// here as well as in Get keeps a disposed record inert: its Activity
// lookup returns nil once the record is back in the pool.
func (cp *contextPool) Put(rc *RequestContext) {
	rc.reset()
	rc.state.Store(stateCompleted)
	cp.pool.Put(rc)
}
