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
	"encoding/binary"

	"github.com/pbpctrl/maestro/internal/bufbytes"
	"github.com/pbpctrl/maestro/internal/splitio"
)

type state int

const (
	stateHunt state = iota
	stateBody
	stateEscape
)

// minFrameLen is address + control + 4-byte FCS; anything shorter can't be a
// valid frame body.
const minFrameLen = 6

// Decoder is a streaming HDLC frame decoder. It carries partial frame state
// across Decode calls, so a caller can feed it arbitrarily chunked transport
// reads.
type Decoder struct {
	cfg   Config
	state state
	acc   *bufbytes.Bytes
}

// NewDecoder returns a Decoder using cfg.
func NewDecoder(cfg Config) *Decoder {
	return &Decoder{
		cfg:   cfg,
		state: stateHunt,
		acc:   bufbytes.New(cfg.MaxFrameSize),
	}
}

// Decode feeds chunk through the decoder, returning zero or more frames
// completed by it. Corrupt or oversized frames are discarded silently; the
// decoder resynchronizes on the next flag byte rather than surfacing an
// error, matching a transport that can interleave arbitrary garbage between
// frames.
func (d *Decoder) Decode(chunk []byte) []Frame {
	var frames []Frame

	i := 0
	for i < len(chunk) {
		if d.state == stateHunt {
			advance, found := huntToFlag(chunk[i:])
			i += advance
			if !found {
				break
			}
			d.state = stateBody
			d.acc.Reset()
			continue
		}

		b := chunk[i]
		i++

		switch d.state {
		case stateBody:
			switch b {
			case FlagByte:
				if f, ok := d.finalize(); ok {
					frames = append(frames, f)
				}
				d.acc.Reset()
			case EscapeByte:
				d.state = stateEscape
			default:
				d.appendByte(b)
			}

		case stateEscape:
			if b == FlagByte {
				// A flag inside an escape sequence is a protocol violation:
				// discard what we had and treat this flag as a new frame's
				// opening delimiter.
				d.acc.Reset()
				d.state = stateBody
				continue
			}
			d.appendByte(b ^ EscapeXOR)
			if d.state == stateEscape {
				d.state = stateBody
			}
		}
	}

	return frames
}

// appendByte writes b to the accumulator, dropping into Hunt immediately if
// doing so exceeds the configured frame size.
func (d *Decoder) appendByte(b byte) {
	d.acc.Write([]byte{b})
	if d.acc.Overflowed() {
		d.acc.Reset()
		d.state = stateHunt
	}
}

// huntToFlag fast-forwards through buf looking for the next flag byte,
// reporting how far it advanced and whether it landed just past a flag.
func huntToFlag(buf []byte) (advance int, found bool) {
	sc := splitio.NewScannerDelim(buf, FlagByte)
	if !sc.Scan() {
		return len(buf), false
	}
	seg := sc.Bytes()
	if !bytes.HasSuffix(seg, []byte{FlagByte}) {
		return len(buf), false
	}
	return len(seg), true
}

// finalize validates and, on success, returns the accumulated frame body as
// a payload.
func (d *Decoder) finalize() (Frame, bool) {
	data := d.acc.Clone()
	if len(data) == 0 {
		// Back-to-back flags: keep-alive, nothing to emit.
		return nil, false
	}
	if len(data) < minFrameLen {
		return nil, false
	}

	head := data[:len(data)-4]
	wantFCS := binary.LittleEndian.Uint32(data[len(data)-4:])
	if checksum(head) != wantFCS {
		return nil, false
	}
	if head[1] != d.cfg.Control {
		return nil, false
	}
	return Frame(head[2:]), true
}
