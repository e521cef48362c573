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
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbpctrl/maestro/hdlc"
	"github.com/pbpctrl/maestro/pwrpc"
)

const (
	testServiceID pwrpc.ServiceID = 0x80000001
	testMethodID  pwrpc.MethodID  = 0x80000002
)

func testConfig() Config {
	return Config{
		ChannelID:       1,
		Frame:           hdlc.DefaultConfig(),
		StreamQueueSize: 4,
	}
}

// peer drives the other end of a net.Pipe as a scripted Maestro server: it
// decodes incoming packets and lets the test push scripted responses back.
type peer struct {
	t    *testing.T
	conn net.Conn
	enc  *hdlc.Encoder
	dec  *hdlc.Decoder

	mu      sync.Mutex
	packets []*pwrpc.Packet
	seen    chan *pwrpc.Packet
}

func newPeer(t *testing.T, conn net.Conn, cfg hdlc.Config) *peer {
	p := &peer{
		t:    t,
		conn: conn,
		enc:  hdlc.NewEncoder(cfg),
		dec:  hdlc.NewDecoder(cfg),
		seen: make(chan *pwrpc.Packet, 16),
	}
	go p.readLoop()
	return p
}

func (p *peer) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := p.conn.Read(buf)
		if n > 0 {
			for _, frame := range p.dec.Decode(buf[:n]) {
				pkt, derr := pwrpc.Decode(frame)
				if derr != nil {
					continue
				}
				p.seen <- pkt
			}
		}
		if err != nil {
			close(p.seen)
			return
		}
	}
}

func (p *peer) next(t *testing.T) *pwrpc.Packet {
	t.Helper()
	select {
	case pkt, ok := <-p.seen:
		if !ok {
			t.Fatal("peer: transport closed before packet arrived")
		}
		return pkt
	case <-time.After(2 * time.Second):
		t.Fatal("peer: timed out waiting for packet")
		return nil
	}
}

func (p *peer) send(t *testing.T, pkt *pwrpc.Packet) {
	t.Helper()
	require.NoError(t, p.enc.EncodeTo(p.conn, pkt.Encode()))
}

func newLoopback(t *testing.T) (*Dispatcher, *peer) {
	client, server := net.Pipe()
	t.Cleanup(func() { client.Close(); server.Close() })

	cfg := testConfig()
	d := New(client, cfg)
	d.Start()
	t.Cleanup(func() { d.Close() })

	p := newPeer(t, server, cfg.Frame)
	return d, p
}

func TestUnaryRoundTrip(t *testing.T) {
	d, p := newLoopback(t)

	var resp []byte
	var rerr error
	done := make(chan struct{})
	go func() {
		resp, rerr = d.CallUnary(context.Background(), testServiceID, testMethodID, []byte("request"), 0)
		close(done)
	}()

	req := p.next(t)
	assert.Equal(t, pwrpc.PacketTypeRequest, req.Type)
	assert.Equal(t, testServiceID, req.ServiceID)
	assert.Equal(t, testMethodID, req.MethodID)
	assert.Equal(t, []byte("request"), req.Payload)

	p.send(t, &pwrpc.Packet{
		Type:      pwrpc.PacketTypeResponse,
		ChannelID: req.ChannelID,
		ServiceID: req.ServiceID,
		MethodID:  req.MethodID,
		CallID:    req.CallID,
		Payload:   []byte("response"),
	})

	<-done
	require.NoError(t, rerr)
	assert.Equal(t, []byte("response"), resp)
}

func TestUnaryRPCStatusError(t *testing.T) {
	d, p := newLoopback(t)

	done := make(chan struct{})
	var rerr error
	go func() {
		_, rerr = d.CallUnary(context.Background(), testServiceID, testMethodID, nil, 0)
		close(done)
	}()

	req := p.next(t)
	p.send(t, &pwrpc.Packet{
		Type:      pwrpc.PacketTypeResponse,
		ChannelID: req.ChannelID,
		ServiceID: req.ServiceID,
		MethodID:  req.MethodID,
		CallID:    req.CallID,
		Status:    7,
	})

	<-done
	require.Error(t, rerr)
	rpcErr, ok := rerr.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindRpcStatus, rpcErr.Kind)
	assert.Equal(t, uint32(7), rpcErr.Status)
}

func TestUnaryTimeout(t *testing.T) {
	d, p := newLoopback(t)
	_ = p

	start := time.Now()
	_, err := d.CallUnary(context.Background(), testServiceID, testMethodID, nil, 50*time.Millisecond)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	rpcErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindCancelled, rpcErr.Kind)

	// The dispatcher must have emitted a CLIENT_ERROR for the timed-out call,
	// after the REQUEST that opened it.
	p.next(t) // the REQUEST
	cancel := p.next(t)
	assert.Equal(t, pwrpc.PacketTypeClientError, cancel.Type)
}

func TestUnaryCallerCancellation(t *testing.T) {
	d, p := newLoopback(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var err error
	go func() {
		_, err = d.CallUnary(ctx, testServiceID, testMethodID, nil, 0)
		close(done)
	}()

	p.next(t) // the REQUEST
	cancel()
	<-done

	rpcErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindCancelled, rpcErr.Kind)
}

// TestUnaryResponseRaceWithCancellationRecordsExactlyOnce exercises spec
// §4.C / Invariant #5 / Scenario S5: cancelling a call races a RESPONSE
// arriving for it, and exactly one terminal outcome must ever be recorded,
// never both and never neither. Run many times since which side wins the
// race is timing-dependent.
func TestUnaryResponseRaceWithCancellationRecordsExactlyOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		client, server := net.Pipe()

		var mu sync.Mutex
		var records []Record

		cfg := testConfig()
		cfg.OnComplete = func(r Record) {
			mu.Lock()
			records = append(records, r)
			mu.Unlock()
		}
		d := New(client, cfg)
		d.Start()
		p := newPeer(t, server, cfg.Frame)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			_, _ = d.CallUnary(ctx, testServiceID, testMethodID, nil, 0)
			close(done)
		}()

		req := p.next(t)

		go func() {
			_ = p.enc.EncodeTo(p.conn, (&pwrpc.Packet{
				Type:      pwrpc.PacketTypeResponse,
				ChannelID: req.ChannelID,
				ServiceID: req.ServiceID,
				MethodID:  req.MethodID,
				CallID:    req.CallID,
				Payload:   []byte("response"),
			}).Encode())
		}()
		cancel()

		<-done

		mu.Lock()
		n := len(records)
		mu.Unlock()
		assert.Equal(t, 1, n, "iteration %d: exactly one terminal record must be recorded, got %d", i, n)

		d.Close()
		server.Close()
	}
}

func TestStreamBackpressureAndOrder(t *testing.T) {
	d, p := newLoopback(t)

	recv, err := d.OpenStream(context.Background(), testServiceID, testMethodID, nil)
	require.NoError(t, err)

	req := p.next(t)

	const n = 20
	go func() {
		for i := 0; i < n; i++ {
			p.send(t, &pwrpc.Packet{
				Type:      pwrpc.PacketTypeServerStream,
				ChannelID: req.ChannelID,
				ServiceID: req.ServiceID,
				MethodID:  req.MethodID,
				CallID:    req.CallID,
				Payload:   []byte{byte(i)},
			})
		}
		p.send(t, &pwrpc.Packet{
			Type:      pwrpc.PacketTypeResponse,
			ChannelID: req.ChannelID,
			ServiceID: req.ServiceID,
			MethodID:  req.MethodID,
			CallID:    req.CallID,
		})
	}()

	for i := 0; i < n; i++ {
		payload, err := recv.Next(context.Background())
		require.NoError(t, err)
		require.Len(t, payload, 1)
		assert.Equal(t, byte(i), payload[0])
	}

	_, err = recv.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

// TestStreamCloseAfterCompletionIsIdempotent exercises spec Invariant #5:
// cancelling (here, Close after the stream already ran to completion) must
// never produce a second terminal record or a stray CLIENT_ERROR for a call
// the peer already considers finished.
func TestStreamCloseAfterCompletionIsIdempotent(t *testing.T) {
	var mu sync.Mutex
	var records []Record

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cfg := testConfig()
	cfg.OnComplete = func(r Record) {
		mu.Lock()
		records = append(records, r)
		mu.Unlock()
	}
	d := New(client, cfg)
	d.Start()
	defer d.Close()

	p := newPeer(t, server, cfg.Frame)

	recv, err := d.OpenStream(context.Background(), testServiceID, testMethodID, nil)
	require.NoError(t, err)

	req := p.next(t)
	p.send(t, &pwrpc.Packet{
		Type:      pwrpc.PacketTypeResponse,
		ChannelID: req.ChannelID,
		ServiceID: req.ServiceID,
		MethodID:  req.MethodID,
		CallID:    req.CallID,
	})

	_, err = recv.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	// The stream already ran to completion; Close must be a no-op.
	recv.Close()
	recv.Close()

	mu.Lock()
	n := len(records)
	mu.Unlock()
	assert.Equal(t, 1, n, "stream completion must be recorded exactly once, got %d", n)

	select {
	case pkt := <-p.seen:
		t.Fatalf("peer received unexpected packet after stream completed: %v", pkt)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTransportClosedFansOutToAllInFlight(t *testing.T) {
	client, server := net.Pipe()
	cfg := testConfig()
	d := New(client, cfg)
	d.Start()

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := d.CallUnary(context.Background(), testServiceID, testMethodID, nil, 0)
			errs <- err
		}()
	}

	// Give every goroutine a chance to register before we sever the
	// transport.
	time.Sleep(50 * time.Millisecond)
	server.Close()
	client.Close()

	for i := 0; i < n; i++ {
		err := <-errs
		require.Error(t, err)
		rpcErr, ok := err.(*Error)
		require.True(t, ok)
		assert.Equal(t, KindTransportClosed, rpcErr.Kind)
	}

	_, err := d.CallUnary(context.Background(), testServiceID, testMethodID, nil, 0)
	require.Error(t, err)
}

func TestPayloadTooLargeNeverTouchesTransport(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cfg := testConfig()
	cfg.Frame.MaxFrameSize = 16
	d := New(client, cfg)
	d.Start()
	defer d.Close()

	_, err := d.CallUnary(context.Background(), testServiceID, testMethodID, make([]byte, 64), time.Second)
	require.Error(t, err)
	rpcErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindTooLarge, rpcErr.Kind)
}
