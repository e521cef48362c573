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

// ServiceID and MethodID wrap the raw 32-bit hashes so a service id can
// never be passed where a method id is expected, or vice versa, by the
// compiler rather than by convention.
type (
	ServiceID uint32
	MethodID  uint32
)

// HashServiceName returns the ServiceID for a fully-qualified service name,
// e.g. "maestro_pw.Maestro".
func HashServiceName(name string) ServiceID {
	return ServiceID(HashName(name))
}

// HashMethodName returns the MethodID for a method name within its service,
// e.g. "GetSoftwareInfo".
func HashMethodName(name string) MethodID {
	return MethodID(HashName(name))
}
