//go:build !syncx_debug

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

// debugInfo is empty in the default build: deadlock-finder instrumentation
// (§4.6, §9) costs nothing unless built with -tags syncx_debug.
type debugInfo struct{}

func (d *debugInfo) record(skip int) {}

// LastLockSite always returns "" outside of a syncx_debug build.
func (m *Mutex) LastLockSite() string { return "" }
