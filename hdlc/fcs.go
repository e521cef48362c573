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

package hdlc

import "hash/crc32"

// checksum computes the CRC-32/ISO-HDLC FCS over b: polynomial 0xEDB88320,
// init 0xFFFFFFFF, reflected input/output, final XOR 0xFFFFFFFF. This is
// bit-for-bit the IEEE 802.3 CRC-32 the standard library already ships as
// crc32.IEEE, so there's no third-party polynomial table to wire in here.
func checksum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}
