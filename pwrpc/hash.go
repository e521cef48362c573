// Copyright 2025 The pbpctrl Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pwrpc

// HashName computes the Pigweed RPC service/method id hash for name: start
// from its length, roll in each byte with the 65599 polynomial, and set the
// top bit so the id is always non-zero and distinguishable from small
// reserved values. Both endpoints of an RPC must derive identical ids from
// the same fully-qualified name for dispatch to work at all.
func HashName(name string) uint32 {
	h := uint32(len(name))
	for i := 0; i < len(name); i++ {
		h = h*65599 + uint32(name[i])
	}
	return h | 0x80000000
}
