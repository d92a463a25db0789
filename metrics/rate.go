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

package metrics

import (
	"math"
	"time"
)

// Rate returns the most recent requests-per-second value derived by the
// sampler. Returns 0 before the first sample interval elapses or when
// the sampler is not running.
func (r *Recorder) Rate() float64 {
	return math.Float64frombits(r.rateBits.Load())
}

// startSampler launches the background goroutine that derives the
// requests-per-second rate from the total-requests delta once per
// sample interval. The observable gauge reads the same derived value,
// so pull-based collectors see it on demand as well.
func (r *Recorder) startSampler() {
	r.samplerStop = make(chan struct{})
	r.samplerDone = make(chan struct{})

	go func() {
		defer close(r.samplerDone)

		ticker := time.NewTicker(r.sampleInterval)
		defer ticker.Stop()

		last := r.total.Load()
		for {
			select {
			case <-r.samplerStop:
				return
			case <-ticker.C:
				cur := r.total.Load()
				rate := float64(cur-last) / r.sampleInterval.Seconds()
				r.rateBits.Store(math.Float64bits(rate))
				last = cur
			}
		}
	}()
}

// stopSampler stops the sampler goroutine and waits for it to exit.
// Safe to call when the sampler was never started.
func (r *Recorder) stopSampler() {
	if r.samplerStop == nil {
		return
	}
	close(r.samplerStop)
	<-r.samplerDone
	r.samplerStop = nil
	r.samplerDone = nil
}
