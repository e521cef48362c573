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

// Package maestro carries the "maestro_pw.Maestro" service catalog Pixel
// Buds Pro exposes over Pigweed RPC: software/hardware/runtime info and
// settings read/write. It deliberately does not decode SettingValue or
// firmware-slot payload contents (spec §9 Open Questions) — every method
// here forwards opaque protobuf bytes, leaving schema marshal/unmarshal to
// the caller.
package maestro

import "github.com/pbpctrl/maestro/client"

// ServiceName is the fully-qualified Pigweed RPC service name Pixel Buds
// Pro's firmware registers its Maestro methods under.
const ServiceName = "maestro_pw.Maestro"

// Method catalog, per spec §1/§6. Exact field layouts of the request/
// response messages are outside this module's scope; callers supply their
// own protobuf marshal/unmarshal for the opaque payload.
var (
	GetSoftwareInfo = client.Method{Service: ServiceName, Name: "GetSoftwareInfo", Kind: client.Unary}
	GetHardwareInfo = client.Method{Service: ServiceName, Name: "GetHardwareInfo", Kind: client.Unary}
	GetRuntimeInfo  = client.Method{Service: ServiceName, Name: "GetRuntimeInfo", Kind: client.Unary}

	SubscribeRuntimeInfo = client.Method{Service: ServiceName, Name: "SubscribeRuntimeInfo", Kind: client.ServerStream}

	GetSetting     = client.Method{Service: ServiceName, Name: "GetSetting", Kind: client.Unary}
	SetSetting     = client.Method{Service: ServiceName, Name: "SetSetting", Kind: client.Unary}
	GetAllSettings = client.Method{Service: ServiceName, Name: "GetAllSettings", Kind: client.Unary}
)

// Methods lists every catalog entry, e.g. for registering call-log labels
// or a CLI's method completion.
func Methods() []client.Method {
	return []client.Method{
		GetSoftwareInfo,
		GetHardwareInfo,
		GetRuntimeInfo,
		SubscribeRuntimeInfo,
		GetSetting,
		SetSetting,
		GetAllSettings,
	}
}
