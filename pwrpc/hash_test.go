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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test vectors computed independently from the 65599-rolling-hash
// definition in the wire format documentation; both endpoints of an RPC
// exchange must agree on these exact values.
func TestHashNameVectors(t *testing.T) {
	tests := []struct {
		name string
		want uint32
	}{
		{"maestro_pw.Maestro", 0x86cf416a},
		{"GetSoftwareInfo", 0xb530ea3c},
		{"GetHardwareInfo", 0xa71b99dd},
		{"GetRuntimeInfo", 0xe118ee1e},
		{"SubscribeRuntimeInfo", 0x8fce7e10},
		{"GetSetting", 0x9df63384},
		{"SetSetting", 0xee074e78},
		{"GetAllSettings", 0xb7aaa69c},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HashName(tt.name)
			assert.Equal(t, tt.want, got)
			assert.NotZero(t, got&0x80000000, "top bit must be set")
		})
	}
}

func TestHashNameEmptyStringSetsTopBitOnly(t *testing.T) {
	assert.Equal(t, uint32(0x80000000), HashName(""))
}

func TestHashServiceAndMethodIDsAreDistinctTypes(t *testing.T) {
	svc := HashServiceName("maestro_pw.Maestro")
	method := HashMethodName("GetSoftwareInfo")
	assert.NotEqual(t, uint32(svc), uint32(method))
}
