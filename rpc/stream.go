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
	"context"
	"io"
)

// StreamReceiver is a lazy, pull-based, non-restartable sequence of
// server-stream payloads, per spec §4.D. Items the consumer never pulls are
// considered consumed once the stream is closed: Close releases the
// dispatcher-side call and its backlog without the caller draining it.
type StreamReceiver struct {
	d *Dispatcher
	c *streamCall
}

// Next blocks for the next payload, returning io.EOF once the server has
// completed the stream with status OK, the rpc.Error with KindRpcStatus if
// it completed with a non-OK status, or KindCancelled if ctx is done first.
func (s *StreamReceiver) Next(ctx context.Context) ([]byte, error) {
	payload, err, ok := s.c.next(ctx)
	if ok {
		return payload, nil
	}

	// next returns false either because the peer already drove the stream
	// to completion (fail/complete already ran, this call to fail is a
	// no-op and wins nothing) or because ctx was cancelled locally before
	// that happened, in which case this fail call is the one that actually
	// terminates the call. won tells finishLocalCall which case this was;
	// fail is called either way so the backlog is released regardless.
	won := s.c.fail(err)
	s.d.finishLocalCall(s.c.key, s.c.startedAt(), s.c.trace(), won)
	if err == nil {
		return nil, io.EOF
	}
	return nil, err
}

// Close cancels the stream if it hasn't already terminated. Idempotent: if
// the stream already ran to completion (or was already cancelled), fail
// reports it lost the race and no second CLIENT_ERROR or terminal record is
// produced.
func (s *StreamReceiver) Close() {
	won := s.c.fail(newError(KindCancelled, context.Canceled))
	s.d.finishLocalCall(s.c.key, s.c.startedAt(), s.c.trace(), won)
}
