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

// Package pwrpc implements the Pigweed RPC packet envelope carried inside
// each HDLC frame: a protocol-buffer message identifying a call, its
// service/method, its status, and an opaque payload.
package pwrpc

import (
	"encoding/binary"

	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

// PacketType enumerates the roles a Packet can play on the wire.
type PacketType uint32

const (
	// PacketTypeUnknown is the protobuf-reserved zero value; a real packet
	// never carries it.
	PacketTypeUnknown PacketType = iota
	PacketTypeRequest
	PacketTypeResponse
	PacketTypeServerStream
	PacketTypeClientStream
	PacketTypeClientError
	PacketTypeServerError
	PacketTypeCancel
	PacketTypeClientStreamEnd
)

func (t PacketType) String() string {
	switch t {
	case PacketTypeRequest:
		return "REQUEST"
	case PacketTypeResponse:
		return "RESPONSE"
	case PacketTypeServerStream:
		return "SERVER_STREAM"
	case PacketTypeClientStream:
		return "CLIENT_STREAM"
	case PacketTypeClientError:
		return "CLIENT_ERROR"
	case PacketTypeServerError:
		return "SERVER_ERROR"
	case PacketTypeCancel:
		return "CANCEL"
	case PacketTypeClientStreamEnd:
		return "CLIENT_STREAM_END"
	default:
		return "UNKNOWN"
	}
}

const (
	fieldType      = 1
	fieldChannelID = 2
	fieldServiceID = 3
	fieldMethodID  = 4
	fieldPayload   = 5
	fieldStatus    = 6
	fieldCallID    = 7
)

const (
	wireVarint  = 0
	wireFixed64 = 1
	wireBytes   = 2
	wireFixed32 = 5
)

// ErrMalformedPacket is returned by Decode when the envelope is truncated or
// uses a wire type this codec can't safely skip.
var ErrMalformedPacket = errors.New("pwrpc: malformed packet")

// Packet is the decoded RPC envelope.
type Packet struct {
	Type      PacketType
	ChannelID uint32
	ServiceID ServiceID
	MethodID  MethodID

	// Payload is opaque protobuf-encoded request/response bytes. A nil
	// Payload is omitted from the wire entirely; a non-nil empty slice is
	// encoded as an explicit zero-length field, matching messages (like an
	// OK response with an empty body) that require the field to be present.
	Payload []byte

	Status uint32
	CallID uint32

	// unknownFields preserves any wire-format field outside tags 1-7
	// verbatim, so a peer running a newer protocol revision doesn't lose
	// data it sent that this version doesn't understand yet.
	unknownFields [][]byte
}

// Key identifies the call a Packet belongs to.
type Key struct {
	ChannelID uint32
	ServiceID ServiceID
	MethodID  MethodID
	CallID    uint32
}

// Key extracts the call key from p.
func (p *Packet) Key() Key {
	return Key{
		ChannelID: p.ChannelID,
		ServiceID: p.ServiceID,
		MethodID:  p.MethodID,
		CallID:    p.CallID,
	}
}

// Encode serializes p as a protobuf message per the Pigweed RPC envelope
// wire format. Zero-valued scalar fields are omitted, matching proto3
// encoding conventions.
func (p *Packet) Encode() []byte {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if p.Type != PacketTypeUnknown {
		writeVarintField(buf, fieldType, uint64(p.Type))
	}
	if p.ChannelID != 0 {
		writeVarintField(buf, fieldChannelID, uint64(p.ChannelID))
	}
	if p.ServiceID != 0 {
		writeFixed32Field(buf, fieldServiceID, uint32(p.ServiceID))
	}
	if p.MethodID != 0 {
		writeFixed32Field(buf, fieldMethodID, uint32(p.MethodID))
	}
	if p.Payload != nil {
		writeBytesField(buf, fieldPayload, p.Payload)
	}
	if p.Status != 0 {
		writeVarintField(buf, fieldStatus, uint64(p.Status))
	}
	if p.CallID != 0 {
		writeVarintField(buf, fieldCallID, uint64(p.CallID))
	}
	for _, raw := range p.unknownFields {
		buf.Write(raw)
	}

	return append([]byte(nil), buf.Bytes()...)
}

// Decode parses b as a Packet.
func Decode(b []byte) (*Packet, error) {
	p := &Packet{}

	i := 0
	for i < len(b) {
		tag, n := proto.DecodeVarint(b[i:])
		if n == 0 {
			return nil, ErrMalformedPacket
		}
		fieldStart := i
		i += n

		field := tag >> 3
		wireType := tag & 0x7

		valStart := i
		switch wireType {
		case wireVarint:
			_, vn := proto.DecodeVarint(b[i:])
			if vn == 0 {
				return nil, ErrMalformedPacket
			}
			i += vn
		case wireFixed32:
			if i+4 > len(b) {
				return nil, ErrMalformedPacket
			}
			i += 4
		case wireFixed64:
			if i+8 > len(b) {
				return nil, ErrMalformedPacket
			}
			i += 8
		case wireBytes:
			l, ln := proto.DecodeVarint(b[i:])
			if ln == 0 {
				return nil, ErrMalformedPacket
			}
			i += ln
			if i+int(l) > len(b) {
				return nil, ErrMalformedPacket
			}
			i += int(l)
		default:
			return nil, errors.Wrapf(ErrMalformedPacket, "unsupported wire type %d", wireType)
		}

		switch field {
		case fieldType:
			v, _ := proto.DecodeVarint(b[valStart:i])
			p.Type = PacketType(v)
		case fieldChannelID:
			v, _ := proto.DecodeVarint(b[valStart:i])
			p.ChannelID = uint32(v)
		case fieldServiceID:
			p.ServiceID = ServiceID(binary.LittleEndian.Uint32(b[valStart:i]))
		case fieldMethodID:
			p.MethodID = MethodID(binary.LittleEndian.Uint32(b[valStart:i]))
		case fieldPayload:
			lenStart := valStart
			l, ln := proto.DecodeVarint(b[lenStart:])
			payload := b[lenStart+ln : lenStart+ln+int(l)]
			p.Payload = append([]byte{}, payload...)
		case fieldStatus:
			v, _ := proto.DecodeVarint(b[valStart:i])
			p.Status = uint32(v)
		case fieldCallID:
			v, _ := proto.DecodeVarint(b[valStart:i])
			p.CallID = uint32(v)
		default:
			p.unknownFields = append(p.unknownFields, append([]byte(nil), b[fieldStart:i]...))
		}
	}

	return p, nil
}

func writeVarintField(buf *bytebufferpool.ByteBuffer, field int, v uint64) {
	tag := uint64(field)<<3 | wireVarint
	buf.Write(proto.EncodeVarint(tag))
	buf.Write(proto.EncodeVarint(v))
}

func writeFixed32Field(buf *bytebufferpool.ByteBuffer, field int, v uint32) {
	tag := uint64(field)<<3 | wireFixed32
	buf.Write(proto.EncodeVarint(tag))
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeBytesField(buf *bytebufferpool.ByteBuffer, field int, v []byte) {
	tag := uint64(field)<<3 | wireBytes
	buf.Write(proto.EncodeVarint(tag))
	buf.Write(proto.EncodeVarint(uint64(len(v))))
	buf.Write(v)
}
