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

// Package client is the user-facing RPC surface (spec §4.D): unary and
// server-stream operations addressed by a static service/method catalog,
// sitting directly on top of the rpc.Dispatcher.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/pbpctrl/maestro/pwrpc"
	"github.com/pbpctrl/maestro/rpc"
)

// Kind distinguishes the two call shapes the dispatcher supports.
type Kind int

const (
	// Unary is a single request, single response call.
	Unary Kind = iota
	// ServerStream is a single request, many-response call terminated by a
	// status.
	ServerStream
)

// Method describes one entry of the external service catalog (spec §6): a
// fully-qualified service name, a method name within it, and the call
// shape. ServiceID/MethodID derive the ids from the names via the Pigweed
// hash (recomputed on each call) so call sites never compute them by hand.
type Method struct {
	Service string
	Name    string
	Kind    Kind
}

// ServiceID returns the Pigweed RPC service id for m.
func (m Method) ServiceID() pwrpc.ServiceID {
	return pwrpc.HashServiceName(m.Service)
}

// MethodID returns the Pigweed RPC method id for m.
func (m Method) MethodID() pwrpc.MethodID {
	return pwrpc.HashMethodName(m.Name)
}

func (m Method) String() string {
	return fmt.Sprintf("%s.%s", m.Service, m.Name)
}

// Client is a thin, opaque-payload-oriented wrapper over a Dispatcher.
type Client struct {
	disp           *rpc.Dispatcher
	defaultTimeout time.Duration
}

// New returns a Client bound to disp. defaultTimeout applies to every Call
// that doesn't specify its own via context; zero disables the default (only
// ctx cancellation governs the call).
func New(disp *rpc.Dispatcher, defaultTimeout time.Duration) *Client {
	return &Client{disp: disp, defaultTimeout: defaultTimeout}
}

// Call issues a unary RPC and blocks for the decoded response payload.
func (c *Client) Call(ctx context.Context, m Method, req []byte) ([]byte, error) {
	if m.Kind != Unary {
		return nil, fmt.Errorf("client: %s is not a unary method", m)
	}
	timeout := c.defaultTimeout
	if _, ok := ctx.Deadline(); ok {
		timeout = 0
	}
	return c.disp.CallUnary(ctx, m.ServiceID(), m.MethodID(), req, timeout)
}

// CallTimeout is Call with an explicit per-call timeout overriding the
// Client's default.
func (c *Client) CallTimeout(ctx context.Context, m Method, req []byte, timeout time.Duration) ([]byte, error) {
	if m.Kind != Unary {
		return nil, fmt.Errorf("client: %s is not a unary method", m)
	}
	return c.disp.CallUnary(ctx, m.ServiceID(), m.MethodID(), req, timeout)
}

// Stream issues a server-stream RPC and returns a receiver the caller pulls
// decoded response payloads from until the terminal status.
func (c *Client) Stream(ctx context.Context, m Method, req []byte) (*rpc.StreamReceiver, error) {
	if m.Kind != ServerStream {
		return nil, fmt.Errorf("client: %s is not a server-stream method", m)
	}
	return c.disp.OpenStream(ctx, m.ServiceID(), m.MethodID(), req)
}

// Close tears down the underlying dispatcher and transport.
func (c *Client) Close() error {
	return c.disp.Close()
}
