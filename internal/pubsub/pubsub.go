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

package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrQueueClosed is returned by PushContext when the queue was closed while
// a push was waiting for room.
var ErrQueueClosed = errors.New("pubsub: queue closed")

// Queue is a subscriber's inbox.
type Queue interface {
	// ID is the queue's unique identity.
	ID() string

	// PopTimeout blocks until an element is available or timeout elapses. On
	// a closed queue it returns any remaining backlog item, then reports
	// false without waiting once the backlog is empty.
	PopTimeout(timeout time.Duration) (any, bool)

	// Push enqueues data, dropping it silently if the queue is full or
	// closed. Used for best-effort fan-out where one slow subscriber must
	// not stall the others.
	Push(data any)

	// PushContext enqueues data, blocking until there is room, the queue is
	// closed, or ctx is done. Used where losing data silently is not
	// acceptable and the producer can exert backpressure on its own source.
	PushContext(ctx context.Context, data any) error

	// Close closes the queue to further pushes. Items already queued stay
	// poppable until the backlog is drained.
	Close()
}

// channel is a Queue implementation backed by a buffered Go channel.
//
// Close never closes ch itself: a blocked PushContext selecting on ch and a
// concurrent Close would otherwise race a send against close(chan), which
// panics. Close instead closes a dedicated signal channel; PushContext
// selects on that, and PopTimeout keeps draining ch's backlog after the
// signal fires until it's empty, so no buffered item is lost to an
// in-between Close.
type channel struct {
	id     string
	ch     chan any
	closed atomic.Bool
	closeC chan struct{}
}

// NewQueue returns a standalone Queue, useful for single-consumer backlogs
// that don't need PubSub's broadcast/registry semantics.
func NewQueue(size int) Queue {
	return newChannel(size)
}

func newChannel(size int) Queue {
	if size <= 0 {
		size = 1
	}

	return &channel{
		id:     uuid.New().String(),
		ch:     make(chan any, size),
		closeC: make(chan struct{}),
	}
}

func (ch *channel) ID() string {
	return ch.id
}

func (ch *channel) PopTimeout(timeout time.Duration) (any, bool) {
	select {
	case data := <-ch.ch:
		return data, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-ch.ch:
		return data, true
	case <-ch.closeC:
		select {
		case data := <-ch.ch:
			return data, true
		default:
			return nil, false
		}
	case <-timer.C:
		return nil, false
	}
}

func (ch *channel) Push(data any) {
	if ch.closed.Load() {
		return
	}

	select {
	case ch.ch <- data:
	default:
	}
}

func (ch *channel) PushContext(ctx context.Context, data any) error {
	if ch.closed.Load() {
		return ErrQueueClosed
	}

	select {
	case ch.ch <- data:
		return nil
	case <-ch.closeC:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ch *channel) Close() {
	if ch.closed.CompareAndSwap(false, true) {
		close(ch.closeC)
	}
}

type PubSub struct {
	mut    sync.RWMutex
	queues map[string]Queue
}

func New() *PubSub {
	return &PubSub{
		queues: make(map[string]Queue),
	}
}

func (p *PubSub) Num() int {
	p.mut.RLock()
	defer p.mut.RUnlock()

	return len(p.queues)
}

func (p *PubSub) Subscribe(size int) Queue {
	p.mut.Lock()
	defer p.mut.Unlock()

	ch := newChannel(size)
	p.queues[ch.ID()] = ch
	return ch
}

func (p *PubSub) Publish(msg any) {
	p.mut.RLock()
	defer p.mut.RUnlock()

	for _, q := range p.queues {
		q.Push(msg)
	}
}

func (p *PubSub) Unsubscribe(q Queue) {
	p.mut.Lock()
	defer p.mut.Unlock()

	delete(p.queues, q.ID())
}
