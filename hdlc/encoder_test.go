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

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", []byte{}},
		{"plain", []byte("hello maestro")},
		{"contains flag byte", []byte{0x01, FlagByte, 0x02}},
		{"contains escape byte", []byte{0x01, EscapeByte, 0x02}},
		{"flag and escape adjacent", []byte{FlagByte, EscapeByte, FlagByte, EscapeByte}},
		{"all stuffable", bytes.Repeat([]byte{FlagByte, EscapeByte}, 32)},
	}

	cfg := DefaultConfig()
	enc := NewEncoder(cfg)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			framed := enc.Encode(tt.payload)
			assert.Equal(t, byte(FlagByte), framed[0])
			assert.Equal(t, byte(FlagByte), framed[len(framed)-1])

			dec := NewDecoder(cfg)
			frames := dec.Decode(framed)
			require.Len(t, frames, 1)
			assert.Equal(t, tt.payload, []byte(frames[0]))
		})
	}
}

func TestEncodeToMatchesEncode(t *testing.T) {
	cfg := DefaultConfig()
	enc := NewEncoder(cfg)
	payload := []byte("round trip via writer")

	var buf bytes.Buffer
	require.NoError(t, enc.EncodeTo(&buf, payload))
	assert.Equal(t, enc.Encode(payload), buf.Bytes())
}

func TestDecodeRejectsBadFCS(t *testing.T) {
	cfg := DefaultConfig()
	enc := NewEncoder(cfg)
	framed := enc.Encode([]byte("corrupt me"))

	// Flip a payload byte without touching the FCS trailer.
	framed[5] ^= 0xFF

	dec := NewDecoder(cfg)
	frames := dec.Decode(framed)
	assert.Empty(t, frames)
}

func TestDecodeRejectsWrongControlByte(t *testing.T) {
	cfg := DefaultConfig()
	otherCfg := cfg
	otherCfg.Control = 0x13

	enc := NewEncoder(otherCfg)
	framed := enc.Encode([]byte("wrong control"))

	dec := NewDecoder(cfg)
	assert.Empty(t, dec.Decode(framed))
}

func TestDecodeToleratesKeepAliveFlags(t *testing.T) {
	cfg := DefaultConfig()
	enc := NewEncoder(cfg)
	payload := []byte("after keepalives")

	stream := append([]byte{FlagByte, FlagByte, FlagByte}, enc.Encode(payload)...)

	dec := NewDecoder(cfg)
	frames := dec.Decode(stream)
	require.Len(t, frames, 1)
	assert.Equal(t, payload, []byte(frames[0]))
}
