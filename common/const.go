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

package common

const (
	// App is the program name, used as the metrics namespace and default
	// log file prefix.
	App = "pbpctrl"

	// Version is the default program version string. cmd's version
	// variable starts from it and is the one -ldflags overrides.
	Version = "v0.0.1"

	// DefaultMaxFrameSize bounds a single HDLC frame body before the decoder
	// gives up and resynchronizes. Pixel Buds Pro frames observed in
	// practice stay well under this; it exists to bound memory under a
	// misbehaving or noisy transport.
	DefaultMaxFrameSize = 4096

	// DefaultStreamQueueSize is the per-call server-stream backlog depth.
	DefaultStreamQueueSize = 16
)
