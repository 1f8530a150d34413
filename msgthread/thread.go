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

package msgthread

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-netty/go-netty-message/message"
	"github.com/go-netty/go-netty-message/syncx"
)

// ErrShuttingDown is returned by operations attempted after
// ShutdownInternalThread has been requested.
var ErrShuttingDown = errors.New("msgthread: thread is shutting down")

// ErrNotStarted is returned when an internal-thread-only operation is
// attempted before StartInternalThread.
var ErrNotStarted = errors.New("msgthread: internal thread not started")

type queueSide struct {
	mu    *syncx.Mutex
	items []*message.Message
	wake  WakeupChannel
}

func newQueueSide(wake WakeupChannel) *queueSide {
	return &queueSide{mu: syncx.NewMutex(), wake: wake}
}

func (q *queueSide) push(msg *message.Message) {
	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()
	q.wake.Signal()
}

// waitPop returns (msg, true) for the next queued message (which may itself
// be nil, the shutdown sentinel), or (nil, false) on deadline expiry.
func (q *queueSide) waitPop(deadline time.Time) (*message.Message, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return msg, true
		}
		q.mu.Unlock()

		if !q.wake.Wait(deadline) {
			return nil, false
		}
	}
}

// MessageHandler processes a Message delivered to a Thread's default
// internal loop. Returning an error ends the loop.
type MessageHandler func(t *Thread, msg *message.Message) error

// LoopFunc is a subclass-supplied internal-thread entry point, used in
// place of the cooperative default loop.
type LoopFunc func(t *Thread) error

// Thread owns a goroutine plus two independent Message queues — one for
// messages sent to the internal thread, one for replies sent to the
// owner — each guarded by its own Mutex and signaled by its own
// WakeupChannel, per §3/§4.7.
type Thread struct {
	toInternal *queueSide
	toOwner    *queueSide

	onMessage MessageHandler
	loop      LoopFunc

	startMu sync.Mutex
	started bool
	wg      sync.WaitGroup
	runErr  error
}

// Option configures a Thread at construction.
type Option func(*Thread)

// WithMessageHandler sets the callback used by the default internal loop
// for each Message received from the owner.
func WithMessageHandler(h MessageHandler) Option {
	return func(t *Thread) { t.onMessage = h }
}

// WithLoopFunc overrides the internal thread's entry point entirely.
func WithLoopFunc(fn LoopFunc) Option {
	return func(t *Thread) { t.loop = fn }
}

// New returns a Thread whose two queues are woken via WaitCondition.
func New(opts ...Option) *Thread {
	return newThread(NewWaitConditionWakeup(), NewWaitConditionWakeup(), opts...)
}

// NewWithPipeWakeup returns a Thread whose two queues are woken via an OS
// pipe instead of a WaitCondition (§3's "chosen at construction").
func NewWithPipeWakeup(opts ...Option) (*Thread, error) {
	toInternalWake, err := NewPipeWakeup()
	if err != nil {
		return nil, err
	}
	toOwnerWake, err := NewPipeWakeup()
	if err != nil {
		toInternalWake.Close()
		return nil, err
	}
	return newThread(toInternalWake, toOwnerWake, opts...), nil
}

func newThread(toInternalWake, toOwnerWake WakeupChannel, opts ...Option) *Thread {
	t := &Thread{
		toInternal: newQueueSide(toInternalWake),
		toOwner:    newQueueSide(toOwnerWake),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartInternalThread spawns the goroutine, created stopped until this is
// called (§3).
func (t *Thread) StartInternalThread() error {
	t.startMu.Lock()
	defer t.startMu.Unlock()
	if t.started {
		return nil
	}
	t.started = true
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		loop := t.loop
		if loop == nil {
			loop = defaultLoop
		}
		if err := loop(t); err != nil {
			t.runErr = err
			log.Printf("msgthread: internal thread exited: %v", err)
		}
	}()
	return nil
}

// defaultLoop pumps messages from the owner and dispatches them to
// onMessage until a nil sentinel message requests shutdown (§4.7's
// shutdown invariant).
func defaultLoop(t *Thread) error {
	for {
		msg, ok := t.WaitForNextMessageFromOwner(time.Time{})
		if !ok {
			continue
		}
		if msg == nil {
			return nil
		}
		if t.onMessage != nil {
			if err := t.onMessage(t, msg); err != nil {
				return err
			}
		}
	}
}

// SendMessageToInternalThread enqueues msg for the internal thread and
// signals its wakeup mechanism.
func (t *Thread) SendMessageToInternalThread(msg *message.Message) error {
	t.toInternal.push(msg)
	return nil
}

// SendMessageToOwner enqueues msg for the owner and signals its wakeup
// mechanism.
func (t *Thread) SendMessageToOwner(msg *message.Message) error {
	t.toOwner.push(msg)
	return nil
}

// WaitForNextMessageFromOwner blocks until a message is available on the
// internal thread's queue, the deadline passes, or returns (nil, false) on
// timeout. A zero deadline blocks forever.
func (t *Thread) WaitForNextMessageFromOwner(deadline time.Time) (*message.Message, bool) {
	return t.toInternal.waitPop(deadline)
}

// GetNextReplyFromInternalThread blocks until a message is available on the
// owner's queue, symmetric to WaitForNextMessageFromOwner.
func (t *Thread) GetNextReplyFromInternalThread(deadline time.Time) (*message.Message, bool) {
	return t.toOwner.waitPop(deadline)
}

// ShutdownInternalThread enqueues the nil sentinel Message and joins,
// per §4.7.
func (t *Thread) ShutdownInternalThread() error {
	t.startMu.Lock()
	started := t.started
	t.startMu.Unlock()
	if !started {
		return ErrNotStarted
	}
	if err := t.SendMessageToInternalThread(nil); err != nil {
		return err
	}
	t.wg.Wait()
	t.toInternal.wake.Close()
	t.toOwner.wake.Close()
	return t.runErr
}
