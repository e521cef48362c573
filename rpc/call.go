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
	"sync"
	"sync/atomic"
	"time"

	"github.com/pbpctrl/maestro/internal/fasttime"
	"github.com/pbpctrl/maestro/internal/pubsub"
	"github.com/pbpctrl/maestro/internal/tracekit"
	"github.com/pbpctrl/maestro/pwrpc"
)

// streamPollInterval bounds how long next() can take to notice ctx
// cancellation while it's blocked waiting on the stream backlog.
const streamPollInterval = 200 * time.Millisecond

// call is the dispatcher's view of an in-flight invocation. unaryCall and
// streamCall are distinct implementations rather than one generic handle:
// their completion and delivery semantics differ enough that a shared
// struct would need a kind tag sprinkled through every method anyway.
type call interface {
	callKey() pwrpc.Key
	lastActivity() int64
	startedAt() int64
	// trace identifies this call for log correlation; every call gets one
	// whether or not anything downstream reads it.
	trace() tracekit.TraceContext
	// fail delivers a terminal error to the caller; used for cancellation,
	// transport teardown and peer-reported errors alike. Idempotent; reports
	// whether this call actually won the race to terminate the call (false
	// if it was already completed or failed by someone else), so dispatch()
	// and finishLocalCall can tell a live terminal transition from a late
	// arrival that lost the race and must not be recorded twice.
	fail(err error) bool
}

type unaryCall struct {
	key       pwrpc.Key
	createdAt int64
	tc        tracekit.TraceContext
	active    atomic.Int64

	once    sync.Once
	done    chan struct{}
	payload []byte
	err     error
}

func newUnaryCall(key pwrpc.Key) *unaryCall {
	now := fasttime.UnixTimestamp()
	c := &unaryCall{
		key:       key,
		createdAt: now,
		tc:        tracekit.TraceContext{TraceID: tracekit.RandomTraceID(), SpanID: tracekit.RandomSpanID()},
		done:      make(chan struct{}),
	}
	c.active.Store(now)
	return c
}

func (c *unaryCall) callKey() pwrpc.Key           { return c.key }
func (c *unaryCall) lastActivity() int64          { return c.active.Load() }
func (c *unaryCall) startedAt() int64             { return c.createdAt }
func (c *unaryCall) trace() tracekit.TraceContext { return c.tc }

// complete delivers a successful response. Idempotent; the first call wins
// and reports true, every later call reports false.
func (c *unaryCall) complete(payload []byte) bool {
	won := false
	c.once.Do(func() {
		c.payload = payload
		close(c.done)
		won = true
	})
	c.active.Store(fasttime.UnixTimestamp())
	return won
}

func (c *unaryCall) fail(err error) bool {
	won := false
	c.once.Do(func() {
		c.err = err
		close(c.done)
		won = true
	})
	return won
}

// wait blocks until the call completes, ctx is done, or the call is failed
// from elsewhere (cancellation, teardown). The returned bool reports whether
// this call of wait is what actually terminated the call locally (ctx fired
// first and won the race against a concurrent server-delivered terminal
// packet) — the caller uses it to decide whether a CLIENT_ERROR and a
// terminal record are still owed, since a call that already finished via
// dispatch() must not be recorded or cancelled a second time.
func (c *unaryCall) wait(ctx context.Context) ([]byte, error, bool) {
	select {
	case <-c.done:
		return c.payload, c.err, false
	case <-ctx.Done():
		won := c.fail(newError(KindCancelled, ctx.Err()))
		<-c.done
		return c.payload, c.err, won
	}
}

type streamCall struct {
	key       pwrpc.Key
	createdAt int64
	tc        tracekit.TraceContext
	active    atomic.Int64

	queue pubsub.Queue

	once       sync.Once
	terminated chan struct{}
	terminal   error
}

func newStreamCall(key pwrpc.Key, queueSize int) *streamCall {
	now := fasttime.UnixTimestamp()
	c := &streamCall{
		key:        key,
		createdAt:  now,
		tc:         tracekit.TraceContext{TraceID: tracekit.RandomTraceID(), SpanID: tracekit.RandomSpanID()},
		queue:      pubsub.NewQueue(queueSize),
		terminated: make(chan struct{}),
	}
	c.active.Store(now)
	return c
}

func (c *streamCall) callKey() pwrpc.Key           { return c.key }
func (c *streamCall) lastActivity() int64          { return c.active.Load() }
func (c *streamCall) startedAt() int64             { return c.createdAt }
func (c *streamCall) trace() tracekit.TraceContext { return c.tc }

// deliver enqueues a payload, blocking for room if the backlog is full. This
// is the dispatcher's one suspension point on the reader path: it naturally
// propagates backpressure to the transport.
func (c *streamCall) deliver(ctx context.Context, payload []byte) error {
	err := c.queue.PushContext(ctx, payload)
	c.active.Store(fasttime.UnixTimestamp())
	return err
}

// complete marks the stream terminal. Idempotent; the first call wins and
// reports true, every later call reports false.
func (c *streamCall) complete(err error) bool {
	won := false
	c.once.Do(func() {
		c.terminal = err
		close(c.terminated)
		c.queue.Close()
		won = true
	})
	return won
}

func (c *streamCall) fail(err error) bool {
	return c.complete(err)
}

// next returns the next payload, or the terminal error once the stream has
// ended and its backlog is drained. The bool return is "ok": true means
// payload is a real item, false means the stream is over (err is the
// terminal error, possibly nil for a clean EOF).
func (c *streamCall) next(ctx context.Context) ([]byte, error, bool) {
	for {
		select {
		case <-ctx.Done():
			return nil, newError(KindCancelled, ctx.Err()), false
		default:
		}

		v, ok := c.queue.PopTimeout(streamPollInterval)
		if ok {
			return v.([]byte), nil, true
		}

		select {
		case <-c.terminated:
			return nil, c.terminal, false
		case <-ctx.Done():
			return nil, newError(KindCancelled, ctx.Err()), false
		default:
		}
	}
}
