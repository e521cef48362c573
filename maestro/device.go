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

package maestro

import (
	"context"

	"github.com/pbpctrl/maestro/client"
	"github.com/pbpctrl/maestro/rpc"
)

// Device is a convenience wrapper binding a client.Client to the Maestro
// catalog above. It carries no schema knowledge: every method forwards
// pre-encoded request bytes and returns pre-decoded response bytes, same as
// the underlying client.Client.
type Device struct {
	c *client.Client
}

// NewDevice wraps c.
func NewDevice(c *client.Client) *Device {
	return &Device{c: c}
}

// GetSoftwareInfo requests the device's firmware/software version report.
func (d *Device) GetSoftwareInfo(ctx context.Context) ([]byte, error) {
	return d.c.Call(ctx, GetSoftwareInfo, nil)
}

// GetHardwareInfo requests the device's hardware identity report.
func (d *Device) GetHardwareInfo(ctx context.Context) ([]byte, error) {
	return d.c.Call(ctx, GetHardwareInfo, nil)
}

// GetRuntimeInfo requests a one-shot battery/placement snapshot.
func (d *Device) GetRuntimeInfo(ctx context.Context) ([]byte, error) {
	return d.c.Call(ctx, GetRuntimeInfo, nil)
}

// SubscribeRuntimeInfo opens a server stream of runtime snapshots pushed by
// the device as battery/placement state changes.
func (d *Device) SubscribeRuntimeInfo(ctx context.Context) (*rpc.StreamReceiver, error) {
	return d.c.Stream(ctx, SubscribeRuntimeInfo, nil)
}

// GetSetting reads one setting by its pre-encoded request (setting id and
// any selector the schema defines).
func (d *Device) GetSetting(ctx context.Context, req []byte) ([]byte, error) {
	return d.c.Call(ctx, GetSetting, req)
}

// SetSetting writes one setting from its pre-encoded request.
func (d *Device) SetSetting(ctx context.Context, req []byte) ([]byte, error) {
	return d.c.Call(ctx, SetSetting, req)
}

// GetAllSettings reads the full settings snapshot.
func (d *Device) GetAllSettings(ctx context.Context) ([]byte, error) {
	return d.c.Call(ctx, GetAllSettings, nil)
}
