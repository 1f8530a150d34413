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

package syncx

import (
	"sync"

	"github.com/petermattis/goid"
)

type rwHolder struct {
	read  int
	write int
}

// ReaderWriterMutex allows multiple concurrent readers or one writer,
// recursive both as reader and writer, with reader-to-writer upgrade, per
// §4.6. Writer-starvation avoidance is best-effort: new readers may still
// enter while a writer waits.
type ReaderWriterMutex struct {
	mu sync.Mutex

	holders     map[int64]*rwHolder
	writerGID   int64 // 0 means no active writer
	readerTotal int

	waitingWriters []*WaitCondition
	waitingReaders []*WaitCondition
}

// NewReaderWriterMutex returns a ready-to-use ReaderWriterMutex.
func NewReaderWriterMutex() *ReaderWriterMutex {
	return &ReaderWriterMutex{holders: make(map[int64]*rwHolder)}
}

func (r *ReaderWriterMutex) holder(gid int64) *rwHolder {
	h, ok := r.holders[gid]
	if !ok {
		h = &rwHolder{}
		r.holders[gid] = h
	}
	return h
}

func (r *ReaderWriterMutex) dropIfIdle(gid int64, h *rwHolder) {
	if h.read == 0 && h.write == 0 {
		delete(r.holders, gid)
	}
}

// LockReadOnly acquires a (possibly recursive) read lock.
func (r *ReaderWriterMutex) LockReadOnly() {
	gid := goid.Get()

	r.mu.Lock()
	h := r.holder(gid)
	if h.read > 0 || h.write > 0 || gid == r.writerGID {
		h.read++
		r.readerTotal++
		r.mu.Unlock()
		return
	}

	for r.writerGID != 0 {
		wc := getPooledWaitCondition()
		r.waitingReaders = append(r.waitingReaders, wc)
		r.mu.Unlock()
		wc.Wait(zeroTime)
		putPooledWaitCondition(wc)
		r.mu.Lock()
	}

	h.read++
	r.readerTotal++
	r.mu.Unlock()
}

// LockReadWrite acquires a (possibly recursive) write lock, upgrading from
// a held read lock via release-and-reacquire when other readers are
// present, per §4.6's documented upgrade strategy.
func (r *ReaderWriterMutex) LockReadWrite() {
	gid := goid.Get()

	r.mu.Lock()
	h := r.holder(gid)

	if gid == r.writerGID {
		h.write++
		r.mu.Unlock()
		return
	}

	if h.read > 0 && r.readerTotal == h.read {
		// Caller is the sole reader: promote in place, no contention.
		r.writerGID = gid
		h.write++
		r.mu.Unlock()
		return
	}

	savedReads := h.read
	if savedReads > 0 {
		h.read = 0
		r.readerTotal -= savedReads
	}

	for r.writerGID != 0 || r.readerTotal > 0 {
		wc := getPooledWaitCondition()
		r.waitingWriters = append(r.waitingWriters, wc)
		r.mu.Unlock()
		wc.Wait(zeroTime)
		putPooledWaitCondition(wc)
		r.mu.Lock()
	}

	r.writerGID = gid
	h.write = 1
	if savedReads > 0 {
		h.read = savedReads
		r.readerTotal += savedReads
	}
	r.mu.Unlock()
}

// UnlockReadOnly releases one level of read recursion.
func (r *ReaderWriterMutex) UnlockReadOnly() {
	gid := goid.Get()

	r.mu.Lock()
	h := r.holder(gid)
	if h.read == 0 {
		r.mu.Unlock()
		panic("syncx: UnlockReadOnly without a held read lock")
	}
	h.read--
	r.readerTotal--
	r.dropIfIdle(gid, h)
	if r.readerTotal == 0 {
		r.notifyWaitersLocked()
	}
	r.mu.Unlock()
}

// UnlockReadWrite releases one level of write recursion.
func (r *ReaderWriterMutex) UnlockReadWrite() {
	gid := goid.Get()

	r.mu.Lock()
	h := r.holder(gid)
	if h.write == 0 {
		r.mu.Unlock()
		panic("syncx: UnlockReadWrite without a held write lock")
	}
	h.write--
	if h.write == 0 {
		r.writerGID = 0
		r.dropIfIdle(gid, h)
		r.notifyWaitersLocked()
	}
	r.mu.Unlock()
}

// notifyWaitersLocked wakes all waiting writers, or — if there are none —
// all waiting readers, per §4.6's UnlockRead*/UnlockReadWrite contract.
// Callers must hold r.mu.
func (r *ReaderWriterMutex) notifyWaitersLocked() {
	if len(r.waitingWriters) > 0 {
		for _, wc := range r.waitingWriters {
			wc.Notify(1)
		}
		r.waitingWriters = nil
		return
	}
	for _, wc := range r.waitingReaders {
		wc.Notify(1)
	}
	r.waitingReaders = nil
}
