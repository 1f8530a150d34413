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

// Package msgthread implements Thread: an owning goroutine with
// bidirectional Message queues and a pluggable wakeup mechanism, per §4.7.
package msgthread

import (
	"os"
	"time"

	"github.com/go-netty/go-netty-message/syncx"
)

// WakeupChannel signals a blocked reader that new data is available on its
// queue. Exactly one implementation is used per queue side, chosen at
// Thread construction (§3's "exactly one of (socket pair, wait condition)
// is used per thread as its wakeup mechanism").
type WakeupChannel interface {
	Signal()
	Wait(deadline time.Time) bool
	Close()
}

// waitConditionWakeup implements WakeupChannel on top of a syncx.WaitCondition.
type waitConditionWakeup struct {
	wc *syncx.WaitCondition
}

// NewWaitConditionWakeup returns a WakeupChannel backed by a WaitCondition.
func NewWaitConditionWakeup() WakeupChannel {
	return &waitConditionWakeup{wc: syncx.NewWaitCondition()}
}

func (w *waitConditionWakeup) Signal()                     { w.wc.Notify(1) }
func (w *waitConditionWakeup) Wait(deadline time.Time) bool { _, ok := w.wc.Wait(deadline); return ok }
func (w *waitConditionWakeup) Close()                      {}

// pipeWakeup implements WakeupChannel with an OS pipe, the Go analogue of
// the original's socket-pair wakeup mechanism. A real two-way socket pair
// isn't portable (Windows has no syscall.Socketpair), so this uses os.Pipe
// on every platform: unlike net.Pipe, it is a real buffered kernel pipe,
// so Signal never blocks waiting for a reader.
type pipeWakeup struct {
	r, w   *os.File
	reads  chan byte
	closed chan struct{}
}

// NewPipeWakeup returns a WakeupChannel backed by an OS pipe.
func NewPipeWakeup() (WakeupChannel, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	pw := &pipeWakeup{r: r, w: w, reads: make(chan byte), closed: make(chan struct{})}
	go pw.pump()
	return pw, nil
}

func (p *pipeWakeup) pump() {
	buf := make([]byte, 1)
	for {
		n, err := p.r.Read(buf)
		if n > 0 {
			select {
			case p.reads <- buf[0]:
			case <-p.closed:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (p *pipeWakeup) Signal() {
	_, _ = p.w.Write([]byte{0})
}

func (p *pipeWakeup) Wait(deadline time.Time) bool {
	if deadline.IsZero() {
		select {
		case <-p.reads:
			return true
		case <-p.closed:
			return false
		}
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-p.reads:
		return true
	case <-timer.C:
		return false
	case <-p.closed:
		return false
	}
}

func (p *pipeWakeup) Close() {
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
	_ = p.r.Close()
	_ = p.w.Close()
}
