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

// frameOverhead is the HDLC frame bytes that aren't available for the
// envelope: address, control and a 4-byte FCS trailer.
const frameOverhead = 6

// EnvelopeOverhead is a generous upper bound on the encoded size of every
// envelope field besides the payload (type, channel_id, service_id,
// method_id, status, call_id tags and values). The real figure is usually
// well under this; it exists so MaxPayloadSize never under-reports.
const EnvelopeOverhead = 32

// MaxPayloadSize returns the largest RPC payload that can be carried inside
// an HDLC frame bounded by maxFrameSize, after subtracting frame and
// envelope overhead.
func MaxPayloadSize(maxFrameSize int) int {
	n := maxFrameSize - frameOverhead - EnvelopeOverhead
	if n < 0 {
		return 0
	}
	return n
}
