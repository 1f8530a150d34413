//go:build syncx_debug

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
	"fmt"
	"runtime"
	"sync/atomic"
)

// debugInfo records the file:line of the most recent Lock call, for an
// offline lock-order-inversion analyzer to read (§4.6, §9).
type debugInfo struct {
	site atomic.Value // string
}

func (d *debugInfo) record(skip int) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return
	}
	d.site.Store(fmt.Sprintf("%s:%d", file, line))
}

// LastLockSite returns the file:line of the most recent Lock/TryLock call.
func (m *Mutex) LastLockSite() string {
	v, _ := m.dbg.site.Load().(string)
	return v
}
