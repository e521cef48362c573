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

package controller

import (
	"time"

	"github.com/pbpctrl/maestro/calllog"
	"github.com/pbpctrl/maestro/common"
)

// Config is the "controller" section of the YAML configuration: transport
// acquisition and dispatcher tuning. Acquiring the RFCOMM socket itself is
// out of scope (spec Non-goals); Transport.Device names any byte-oriented
// special file the caller has already paired/bound - typically an
// rfcomm(8)-bound character device on Linux.
type Config struct {
	Transport  TransportConfig  `config:"transport"`
	Dispatcher DispatcherConfig `config:"dispatcher"`
	CallLog    calllog.Config   `config:"callLog"`
}

// TransportConfig names the byte transport the dispatcher reads/writes.
type TransportConfig struct {
	// Device is the path to the transport's special file, e.g.
	// /dev/rfcomm0. Required.
	Device string `config:"device"`
}

// DispatcherConfig tunes the rpc.Dispatcher wrapping the transport.
type DispatcherConfig struct {
	ChannelID       uint32        `config:"channelId"`
	MaxFrameSize    int           `config:"maxFrameSize"`
	StreamQueueSize int           `config:"streamQueueSize"`
	MaxInFlight     int           `config:"maxInFlight"`
	DefaultTimeout  time.Duration `config:"defaultTimeout"`
}

func (c *DispatcherConfig) applyDefaults() {
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = common.DefaultMaxFrameSize
	}
	if c.StreamQueueSize <= 0 {
		c.StreamQueueSize = common.DefaultStreamQueueSize
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 10 * time.Second
	}
}
