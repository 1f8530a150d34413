/*
 * Copyright 2019 the go-netty project
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package syncx provides the recursive Mutex, recursive ReaderWriterMutex,
// and edge-buffered WaitCondition primitives that the gateways and Thread
// (see msgthread) are built on, per §4.6.
package syncx

import (
	"math"
	"sync"
	"time"
)

// WaitCondition is an edge-buffered condition variable: a Notify that
// arrives before its matching Wait is not lost, it is held in a saturating
// pending-notifications counter until a Wait observes and drains it.
type WaitCondition struct {
	mu      sync.Mutex
	pending uint64
	signal  chan struct{}
}

// NewWaitCondition returns a ready-to-use WaitCondition.
func NewWaitCondition() *WaitCondition {
	return &WaitCondition{signal: make(chan struct{}, 1)}
}

// zeroTime is the zero time.Time, used to mean "wait forever".
var zeroTime time.Time

// Notify increments the pending-notifications counter by k (saturating on
// overflow) and wakes one waiter, if any.
func (w *WaitCondition) Notify(k uint64) {
	if k == 0 {
		k = 1
	}
	w.mu.Lock()
	sum := w.pending + k
	if sum < w.pending {
		sum = math.MaxUint64
	}
	w.pending = sum
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Wait blocks until the pending-notifications counter is non-zero or
// deadline passes (a zero deadline means wait forever). On success it
// drains the counter to zero and returns the value observed.
func (w *WaitCondition) Wait(deadline time.Time) (uint64, bool) {
	for {
		w.mu.Lock()
		if w.pending != 0 {
			n := w.pending
			w.pending = 0
			w.mu.Unlock()
			return n, true
		}
		w.mu.Unlock()

		if deadline.IsZero() {
			<-w.signal
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, false
		}
		timer := time.NewTimer(remaining)
		select {
		case <-w.signal:
			timer.Stop()
		case <-timer.C:
			return 0, false
		}
	}
}

// waitConditionPool hands out WaitConditions to callers that need to block
// inside ReaderWriterMutex, per §4.6's "per-caller WaitCondition pulled from
// a pool" and §3's "a single instance may be handed to a waiting thread and
// returned after use" invariant. Callers must never Wait on the same
// instance concurrently; Lock*/Unlock* in this package guarantee that by
// construction (one instance per blocked caller at a time).
var waitConditionPool = sync.Pool{
	New: func() interface{} { return NewWaitCondition() },
}

func getPooledWaitCondition() *WaitCondition {
	return waitConditionPool.Get().(*WaitCondition)
}

func putPooledWaitCondition(wc *WaitCondition) {
	waitConditionPool.Put(wc)
}
