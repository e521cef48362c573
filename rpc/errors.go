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

package rpc

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error surfaced to a caller.
type Kind int

const (
	// KindTransportClosed means the underlying byte stream ended or failed;
	// every in-flight call on the dispatcher fails with this kind.
	KindTransportClosed Kind = iota

	// KindProtocolViolation means a packet was decoded that is semantically
	// invalid for this call; the dispatcher logs and drops it.
	KindProtocolViolation

	// KindRpcStatus means the peer reported a terminal status other than OK
	// for this call.
	KindRpcStatus

	// KindCancelled means the caller cancelled the call, or its timeout
	// elapsed.
	KindCancelled

	// KindPayloadDecode means the response payload didn't decode against
	// the expected type.
	KindPayloadDecode

	// KindPayloadEncode means the request payload could not be encoded.
	KindPayloadEncode

	// KindTooLarge means the request would exceed the transport's maximum
	// frame size; the submission fails without touching the transport.
	KindTooLarge

	// KindTooManyInFlight means the channel's in-flight call cap (if
	// configured) was reached.
	KindTooManyInFlight
)

func (k Kind) String() string {
	switch k {
	case KindTransportClosed:
		return "transport closed"
	case KindProtocolViolation:
		return "protocol violation"
	case KindRpcStatus:
		return "rpc status"
	case KindCancelled:
		return "cancelled"
	case KindPayloadDecode:
		return "payload decode"
	case KindPayloadEncode:
		return "payload encode"
	case KindTooLarge:
		return "payload too large"
	case KindTooManyInFlight:
		return "too many in-flight calls"
	default:
		return "unknown"
	}
}

// Error is the error type surfaced to every rpc caller.
type Error struct {
	Kind   Kind
	Status uint32
	Cause  error
}

func (e *Error) Error() string {
	if e.Kind == KindRpcStatus {
		return fmt.Sprintf("rpc: %s (status=%d)", e.Kind, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("rpc: %s: %s", e.Kind, e.Cause)
	}
	return fmt.Sprintf("rpc: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

func newStatusError(status uint32) *Error {
	return &Error{Kind: KindRpcStatus, Status: status}
}

// ErrDispatcherClosed is the Cause wrapped into a KindTransportClosed Error
// when a caller submits against an already-closed Dispatcher.
var ErrDispatcherClosed = errors.New("rpc: dispatcher closed")

// ErrCallIDSpaceExhausted is returned internally when every call id is in
// use for a channel; exposed as KindTooManyInFlight to callers.
var ErrCallIDSpaceExhausted = errors.New("rpc: no call id available")
