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

// Package rpc implements the dispatcher: the correlation engine that
// multiplexes in-flight Maestro RPC calls over one HDLC/Pigweed-RPC
// transport, matching incoming packets to the waiter or stream that issued
// the request.
package rpc

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/pbpctrl/maestro/hdlc"
	"github.com/pbpctrl/maestro/internal/fasttime"
	"github.com/pbpctrl/maestro/internal/rescue"
	"github.com/pbpctrl/maestro/internal/tracekit"
	"github.com/pbpctrl/maestro/logger"
	"github.com/pbpctrl/maestro/pwrpc"
)

// statusCancelled is the status value a CLIENT_ERROR packet carries when a
// call is cancelled locally. Pigweed RPC doesn't fix a wire value for this;
// callers never see it as a Go error code, only as KindCancelled.
const statusCancelled uint32 = 1

// readChunkSize is how much the reader pulls from the transport per Read.
const readChunkSize = 4096

// Config tunes a Dispatcher.
type Config struct {
	// ChannelID is the logical channel this dispatcher's transport carries.
	// Maestro uses exactly one channel per transport (spec Non-goals).
	ChannelID uint32

	// Frame parameterizes the HDLC codec underneath the RPC envelope.
	Frame hdlc.Config

	// StreamQueueSize bounds each server-stream call's payload backlog.
	StreamQueueSize int

	// MaxInFlight caps concurrent in-flight calls on the channel. Zero
	// disables the cap.
	MaxInFlight int

	// OnComplete, if set, is invoked once per call that ends with a
	// peer-delivered terminal packet (RESPONSE or SERVER_ERROR) or is
	// cancelled locally (caller cancellation or timeout), with a summary
	// record. Calls failed by transport teardown are not recorded. Used by
	// calllog to sink
	// completed calls without the dispatcher knowing anything about log
	// formats or file rotation.
	OnComplete func(Record)
}

// Record summarizes one completed call for logging/observability. It never
// carries the decoded payload itself, only its size — payload contents are
// opaque to the dispatcher by design.
type Record struct {
	ServiceID   pwrpc.ServiceID
	MethodID    pwrpc.MethodID
	CallID      uint32
	Outcome     string
	Status      uint32
	Duration    time.Duration
	PayloadSize int

	// Trace correlates this call across a log sink even though the
	// dispatcher never talks HTTP itself; every call gets a random one at
	// creation, per internal/tracekit.
	Trace tracekit.TraceContext
}

func (d *Dispatcher) recordComplete(key pwrpc.Key, createdAt int64, tc tracekit.TraceContext, outcome string, status uint32, payloadSize int) {
	callsByMethodCounter(key.ServiceID, key.MethodID, outcome).Inc()

	if d.cfg.OnComplete == nil {
		return
	}
	d.cfg.OnComplete(Record{
		ServiceID:   key.ServiceID,
		MethodID:    key.MethodID,
		CallID:      key.CallID,
		Outcome:     outcome,
		Status:      status,
		Duration:    time.Duration(fasttime.UnixTimestamp()-createdAt) * time.Second,
		PayloadSize: payloadSize,
		Trace:       tc,
	})
}

// Dispatcher owns one transport and every in-flight Call multiplexed over
// it, per spec §4.C / §5: a single writer path serializes outgoing frames, a
// single reader goroutine drives the frame decoder and routes packets to
// waiters, and the call table is guarded by one lock held only for lookups
// and mutations, never across transport I/O.
type Dispatcher struct {
	cfg        Config
	transport  io.ReadWriteCloser
	enc        *hdlc.Encoder
	dec        *hdlc.Decoder
	maxPayload int

	writeMu sync.Mutex

	mu       sync.Mutex
	calls    map[pwrpc.Key]call
	nextID   uint32
	closed   bool
	closeErr error

	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup
}

// New returns a Dispatcher over transport. Start must be called before any
// call can complete (nothing drives the reader side until then).
func New(transport io.ReadWriteCloser, cfg Config) *Dispatcher {
	if cfg.StreamQueueSize <= 0 {
		cfg.StreamQueueSize = 16
	}
	if cfg.Frame.MaxFrameSize <= 0 {
		cfg.Frame.MaxFrameSize = hdlc.DefaultConfig().MaxFrameSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		cfg:        cfg,
		transport:  transport,
		enc:        hdlc.NewEncoder(cfg.Frame),
		dec:        hdlc.NewDecoder(cfg.Frame),
		maxPayload: pwrpc.MaxPayloadSize(cfg.Frame.MaxFrameSize),
		calls:      make(map[pwrpc.Key]call),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the reader goroutine. Safe to call once per Dispatcher.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer rescue.HandleCrash()
		d.readLoop()
	}()
}

// Wait blocks until the reader goroutine has exited, which happens once the
// transport is closed or torn down.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close tears down every in-flight call with TransportClosed and closes the
// underlying transport.
func (d *Dispatcher) Close() error {
	d.teardown(newError(KindTransportClosed, ErrDispatcherClosed))

	var result *multierror.Error
	if err := d.transport.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	d.wg.Wait()
	return result.ErrorOrNil()
}

func (d *Dispatcher) readLoop() {
	buf := make([]byte, readChunkSize)
	for {
		n, err := d.transport.Read(buf)
		if n > 0 {
			for _, frame := range d.dec.Decode(buf[:n]) {
				framesDecoded.Inc()
				d.handleFrame(frame)
			}
		}
		if err != nil {
			d.teardown(newError(KindTransportClosed, err))
			return
		}
	}
}

func (d *Dispatcher) handleFrame(frame hdlc.Frame) {
	pkt, err := pwrpc.Decode(frame)
	if err != nil {
		envelopeDecodeErrors.Inc()
		logger.Debugf("rpc: dropping malformed packet: %v", err)
		return
	}
	if pkt.ChannelID != d.cfg.ChannelID {
		logger.Debugf("rpc: dropping packet for unknown channel %d", pkt.ChannelID)
		return
	}
	d.dispatch(pkt)
}

// dispatch routes a decoded incoming packet to its waiter, per the dispatch
// rules in spec §4.C. The client role never originates REQUEST/CANCEL/
// CLIENT_STREAM* packets from the peer, so any such type is ignored.
func (d *Dispatcher) dispatch(pkt *pwrpc.Packet) {
	key := pkt.Key()

	switch pkt.Type {
	case pwrpc.PacketTypeResponse:
		c, ok := d.popCall(key)
		if !ok {
			return
		}
		if !d.completeCall(c, pkt.Status, pkt.Payload) {
			// Lost the race to a local cancellation/timeout that already
			// failed this call (spec §4.C: "the late RESPONSE is dropped").
			// finishLocalCall already recorded the terminal outcome.
			return
		}
		callsCompleted.WithLabelValues(outcomeForStatus(pkt.Status)).Inc()
		d.recordComplete(key, c.startedAt(), c.trace(), outcomeForStatus(pkt.Status), pkt.Status, len(pkt.Payload))

	case pwrpc.PacketTypeServerStream:
		c, ok := d.peekCall(key)
		if !ok {
			return
		}
		sc, ok := c.(*streamCall)
		if !ok {
			return
		}
		if err := sc.deliver(d.ctx, pkt.Payload); err != nil {
			logger.Debugf("rpc: dropping stream payload for %v: %v", key, err)
		}

	case pwrpc.PacketTypeServerError:
		c, ok := d.popCall(key)
		if !ok {
			return
		}
		if !c.fail(newStatusError(pkt.Status)) {
			// Same race as above: the call already terminated locally.
			return
		}
		callsCompleted.WithLabelValues("server_error").Inc()
		d.recordComplete(key, c.startedAt(), c.trace(), "server_error", pkt.Status, 0)

	default:
		// REQUEST, CLIENT_STREAM, CLIENT_ERROR, CANCEL, CLIENT_STREAM_END:
		// the client role never receives these from a peer.
	}
}

// completeCall delivers a terminal RESPONSE to c, returning whether c
// actually won the race to terminate (see call.fail).
func (d *Dispatcher) completeCall(c call, status uint32, payload []byte) bool {
	switch v := c.(type) {
	case *unaryCall:
		if status != 0 {
			return v.fail(newStatusError(status))
		}
		return v.complete(payload)
	case *streamCall:
		if status != 0 {
			return v.complete(newStatusError(status))
		}
		return v.complete(nil)
	}
	return false
}

func outcomeForStatus(status uint32) string {
	if status == 0 {
		return "ok"
	}
	return "status_error"
}

func (d *Dispatcher) peekCall(key pwrpc.Key) (call, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.calls[key]
	return c, ok
}

func (d *Dispatcher) popCall(key pwrpc.Key) (call, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.calls[key]
	if ok {
		delete(d.calls, key)
		callsInFlight.Dec()
	}
	return c, ok
}

func (d *Dispatcher) removeCall(key pwrpc.Key) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.calls[key]; ok {
		delete(d.calls, key)
		callsInFlight.Dec()
	}
}

// allocateCallID picks a call id not in use by any live call on the
// channel, per spec §4.C: "the dispatcher refuses to reuse a call_id of any
// live call." Must be called with d.mu held.
func (d *Dispatcher) allocateCallID() (uint32, error) {
	if d.cfg.MaxInFlight > 0 && len(d.calls) >= d.cfg.MaxInFlight {
		return 0, ErrCallIDSpaceExhausted
	}

	for attempt := 0; attempt <= len(d.calls)+1; attempt++ {
		d.nextID++
		if d.nextID == 0 {
			d.nextID = 1
		}
		if !d.callIDInUse(d.nextID) {
			return d.nextID, nil
		}
	}
	return 0, ErrCallIDSpaceExhausted
}

func (d *Dispatcher) callIDInUse(id uint32) bool {
	for k := range d.calls {
		if k.CallID == id {
			return true
		}
	}
	return false
}

// registerCall reserves a call id and inserts c into the call table.
func (d *Dispatcher) registerCall(serviceID pwrpc.ServiceID, methodID pwrpc.MethodID, newCall func(pwrpc.Key) call) (call, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, newError(KindTransportClosed, d.closeErr)
	}

	id, err := d.allocateCallID()
	if err != nil {
		return nil, newError(KindTooManyInFlight, err)
	}

	key := pwrpc.Key{
		ChannelID: d.cfg.ChannelID,
		ServiceID: serviceID,
		MethodID:  methodID,
		CallID:    id,
	}
	c := newCall(key)
	d.calls[key] = c
	callsInFlight.Inc()
	return c, nil
}

// submit encodes pkt as a Pigweed RPC envelope and writes the framed HDLC
// bytes to the transport. Writes are serialized behind writeMu so distinct
// callers' packets never interleave.
func (d *Dispatcher) submit(pkt *pwrpc.Packet) error {
	payload := pkt.Encode()
	if len(payload) > d.maxPayload {
		return newError(KindTooLarge, nil)
	}

	d.mu.Lock()
	closed := d.closed
	closeErr := d.closeErr
	d.mu.Unlock()
	if closed {
		return newError(KindTransportClosed, closeErr)
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if err := d.enc.EncodeTo(d.transport, payload); err != nil {
		d.teardown(newError(KindTransportClosed, err))
		return newError(KindTransportClosed, err)
	}
	return nil
}

// sendCancel emits a best-effort CLIENT_ERROR for key. The local call has
// already transitioned to Cancelled by the time this is called; the peer's
// acknowledgment, if any, arrives as a RESPONSE the dispatcher will find no
// waiter for and silently drop.
func (d *Dispatcher) sendCancel(key pwrpc.Key) {
	pkt := &pwrpc.Packet{
		Type:      pwrpc.PacketTypeClientError,
		ChannelID: key.ChannelID,
		ServiceID: key.ServiceID,
		MethodID:  key.MethodID,
		CallID:    key.CallID,
		Status:    statusCancelled,
	}
	if err := d.submit(pkt); err != nil {
		logger.Debugf("rpc: failed to send cancel for %v: %v", key, err)
	}
	callsCancelled.Inc()
}

// teardown fails every in-flight call with err and marks the Dispatcher
// closed; subsequent submissions fail immediately. Idempotent.
func (d *Dispatcher) teardown(err *Error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.closeErr = err
	calls := d.calls
	d.calls = make(map[pwrpc.Key]call)
	callsInFlight.Sub(float64(len(calls)))
	d.mu.Unlock()

	d.cancel()
	for _, c := range calls {
		c.fail(err)
	}
}

// OldestCallAge reports how long, in seconds, the oldest in-flight call has
// been open. Returns 0 when no call is in flight.
func (d *Dispatcher) OldestCallAge() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.calls) == 0 {
		return 0
	}
	oldest := fasttime.UnixTimestamp()
	for _, c := range d.calls {
		if t := c.startedAt(); t < oldest {
			oldest = t
		}
	}
	return fasttime.UnixTimestamp() - oldest
}

// CallUnary issues a unary request and blocks until it completes, is
// cancelled via ctx, or times out. A non-positive timeout disables the
// per-call deadline (ctx cancellation still applies).
func (d *Dispatcher) CallUnary(ctx context.Context, serviceID pwrpc.ServiceID, methodID pwrpc.MethodID, payload []byte, timeout time.Duration) ([]byte, error) {
	c, err := d.registerCall(serviceID, methodID, func(key pwrpc.Key) call {
		return newUnaryCall(key)
	})
	if err != nil {
		return nil, err
	}
	uc := c.(*unaryCall)

	pkt := &pwrpc.Packet{
		Type:      pwrpc.PacketTypeRequest,
		ChannelID: uc.key.ChannelID,
		ServiceID: serviceID,
		MethodID:  methodID,
		CallID:    uc.key.CallID,
		Payload:   payload,
	}
	if err := d.submit(pkt); err != nil {
		d.removeCall(uc.key)
		return nil, err
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, werr, wonLocally := uc.wait(callCtx)
	d.finishLocalCall(uc.key, uc.startedAt(), uc.trace(), wonLocally)
	return resp, werr
}

// OpenStream issues a server-stream request and returns a StreamReceiver the
// caller pulls decoded payloads from until the terminal status arrives.
func (d *Dispatcher) OpenStream(ctx context.Context, serviceID pwrpc.ServiceID, methodID pwrpc.MethodID, payload []byte) (*StreamReceiver, error) {
	c, err := d.registerCall(serviceID, methodID, func(key pwrpc.Key) call {
		return newStreamCall(key, d.cfg.StreamQueueSize)
	})
	if err != nil {
		return nil, err
	}
	sc := c.(*streamCall)

	pkt := &pwrpc.Packet{
		Type:      pwrpc.PacketTypeRequest,
		ChannelID: sc.key.ChannelID,
		ServiceID: serviceID,
		MethodID:  methodID,
		CallID:    sc.key.CallID,
		Payload:   payload,
	}
	if err := d.submit(pkt); err != nil {
		d.removeCall(sc.key)
		return nil, err
	}

	return &StreamReceiver{d: d, c: sc}, nil
}

// finishLocalCall is invoked once a call ends from the caller's side (wait
// returns, or the caller stops pulling a stream). wonLocally reports whether
// *this* call actually won the race to terminate the call — e.g. ctx fired
// before a RESPONSE arrived, or the stream consumer cancelled before the
// peer sent a terminal packet. Only the winner emits a CLIENT_ERROR and
// records the terminal outcome; a server-delivered terminal packet already
// did both in dispatch() and popped the call from the table, so a caller
// that loses the race (or calls this a second time, e.g. StreamReceiver.
// Close after an already-drained stream) must not re-send a cancel or
// double-record a call that already has a terminal record. removeCall is
// always safe to call either way since it no-ops on an absent key.
// startedAt is the call's creation timestamp, captured by the caller before
// the call object is removed from the table.
func (d *Dispatcher) finishLocalCall(key pwrpc.Key, startedAt int64, tc tracekit.TraceContext, wonLocally bool) {
	if wonLocally {
		d.sendCancel(key)
		d.recordComplete(key, startedAt, tc, "cancelled", statusCancelled, 0)
	}
	d.removeCall(key)
}
