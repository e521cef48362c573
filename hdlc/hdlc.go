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

// Package hdlc implements the HDLC U-frame codec Maestro runs its RPC
// envelope over: byte-stuffed framing delimited by a flag byte, with a
// CRC-32 trailer over address, control and payload.
package hdlc

import "github.com/pbpctrl/maestro/common"

const (
	// FlagByte delimits frames on the wire.
	FlagByte = 0x7E

	// EscapeByte marks the following byte as escaped.
	EscapeByte = 0x7D

	// EscapeXOR is applied to an escaped byte to recover its original value.
	EscapeXOR = 0x20

	// DefaultAddress is the address byte Pixel Buds Pro firmware expects.
	DefaultAddress = 0x7B

	// DefaultControl identifies an unnumbered-information frame.
	DefaultControl = 0x03
)

// Config parameterizes the codec. Address and Control are fixed per
// deployment; MaxFrameSize bounds a single frame's address+control+payload+fcs
// bytes before the decoder gives up on it and resynchronizes.
type Config struct {
	Address      byte
	Control      byte
	MaxFrameSize int
}

// DefaultConfig returns the Config matching Pixel Buds Pro's framing.
func DefaultConfig() Config {
	return Config{
		Address:      DefaultAddress,
		Control:      DefaultControl,
		MaxFrameSize: common.DefaultMaxFrameSize,
	}
}

// Frame is a decoded frame payload: address, control and FCS have already
// been stripped and verified.
type Frame []byte

func needsEscape(b byte) bool {
	return b == FlagByte || b == EscapeByte
}
