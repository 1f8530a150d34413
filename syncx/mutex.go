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

// Mutex is a recursive mutual-exclusion lock: the goroutine that already
// holds it may Lock it again without blocking, per §4.6.
type Mutex struct {
	cond      *sync.Cond
	mu        sync.Mutex
	held      bool
	owner     int64
	recursion int
	dbg       debugInfo
}

// NewMutex returns a ready-to-use Mutex.
func NewMutex() *Mutex {
	m := &Mutex{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Lock acquires the mutex, blocking until it is available or this
// goroutine already owns it.
func (m *Mutex) Lock() {
	gid := goid.Get()
	m.mu.Lock()
	for m.held && m.owner != gid {
		m.cond.Wait()
	}
	m.held = true
	m.owner = gid
	m.recursion++
	m.dbg.record(2)
	m.mu.Unlock()
}

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock() bool {
	gid := goid.Get()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held && m.owner != gid {
		return false
	}
	m.held = true
	m.owner = gid
	m.recursion++
	m.dbg.record(2)
	return true
}

// Unlock releases one level of recursion. It panics if called by a
// goroutine that does not hold the mutex, matching the teacher's
// precedent of panicking on programmer error rather than returning it
// (kcp/options.go panics on a bad cipher name for the same reason).
func (m *Mutex) Unlock() {
	gid := goid.Get()
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.held || m.owner != gid {
		panic("syncx: Unlock of Mutex not held by this goroutine")
	}
	m.recursion--
	if m.recursion == 0 {
		m.held = false
		m.owner = 0
		m.cond.Signal()
	}
}
