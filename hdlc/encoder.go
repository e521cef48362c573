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
	"encoding/binary"
	"io"

	"github.com/valyala/bytebufferpool"
)

// Encoder frames payloads per Config.
type Encoder struct {
	cfg Config
}

// NewEncoder returns an Encoder using cfg.
func NewEncoder(cfg Config) *Encoder {
	return &Encoder{cfg: cfg}
}

// Encode returns the flag-delimited, byte-stuffed frame for payload.
func (e *Encoder) Encode(payload []byte) []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	e.writeFrame(buf, payload)
	return append([]byte(nil), buf.Bytes()...)
}

// EncodeTo writes the framed form of payload directly to w, avoiding the
// intermediate allocation Encode needs to return a standalone slice.
func (e *Encoder) EncodeTo(w io.Writer, payload []byte) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	e.writeFrame(buf, payload)
	_, err := w.Write(buf.Bytes())
	return err
}

func (e *Encoder) writeFrame(buf *bytebufferpool.ByteBuffer, payload []byte) {
	head := make([]byte, 0, 2+len(payload))
	head = append(head, e.cfg.Address, e.cfg.Control)
	head = append(head, payload...)

	var fcs [4]byte
	binary.LittleEndian.PutUint32(fcs[:], checksum(head))

	buf.WriteByte(FlagByte)
	writeStuffed(buf, head)
	writeStuffed(buf, fcs[:])
	buf.WriteByte(FlagByte)
}

func writeStuffed(buf *bytebufferpool.ByteBuffer, b []byte) {
	for _, c := range b {
		if needsEscape(c) {
			buf.WriteByte(EscapeByte)
			buf.WriteByte(c ^ EscapeXOR)
			continue
		}
		buf.WriteByte(c)
	}
}
