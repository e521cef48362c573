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

// Package calllog sinks completed rpc.Record entries to a rotating
// newline-delimited JSON log, independent of the dispatcher itself: the
// dispatcher only knows it has an optional rpc.Config.OnComplete hook to
// call.
package calllog

import (
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pbpctrl/maestro/pwrpc"
	"github.com/pbpctrl/maestro/rpc"
)

// Config tunes a Sinker.
type Config struct {
	Enabled bool `config:"enabled"`

	// Console writes to stdout instead of Filename when set.
	Console bool `config:"console"`

	Filename   string `config:"filename"`
	MaxSize    int    `config:"maxSize"`
	MaxBackups int    `config:"maxBackups"`
	MaxAge     int    `config:"maxAge"`
}

// Validate fills in the sink's defaults.
func (c *Config) Validate() {
	if c.Filename == "" {
		c.Filename = "calls.log"
	}
	if c.MaxSize <= 0 {
		c.MaxSize = 100
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 10
	}
}

// entry is the on-disk record shape. ServiceID/MethodID are logged as raw
// hashes: the hash catalog lives in maestro, not here, and calllog never
// imports it so it stays reusable against any service catalog.
type entry struct {
	ServiceID   pwrpc.ServiceID `json:"service_id"`
	MethodID    pwrpc.MethodID  `json:"method_id"`
	CallID      uint32          `json:"call_id"`
	Outcome     string          `json:"outcome"`
	Status      uint32          `json:"status"`
	DurationMS  int64           `json:"duration_ms"`
	PayloadSize int             `json:"payload_size"`

	// TraceID/SpanID correlate this line with whatever else logged against
	// the same call; the dispatcher mints one per call whether or not a
	// sink is even configured.
	TraceID string `json:"trace_id"`
	SpanID  string `json:"span_id"`
}

// Sinker encodes rpc.Record values as newline-delimited JSON. Safe for
// concurrent use as an rpc.Config.OnComplete callback: the dispatcher may
// invoke it from its single reader goroutine as well as from caller
// goroutines finishing a call locally, so writes are serialized.
type Sinker struct {
	mu  sync.Mutex
	wr  io.WriteCloser
	enc *json.Encoder
}

// New returns a Sinker per cfg. Call Record as the rpc.Config.OnComplete
// hook, e.g. Config.OnComplete = sinker.Record.
func New(cfg Config) *Sinker {
	cfg.Validate()

	var wr io.WriteCloser
	if cfg.Console {
		wr = os.Stdout
	} else {
		wr = &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			LocalTime:  true,
		}
	}

	return &Sinker{wr: wr, enc: json.NewEncoder(wr)}
}

// Record encodes one completed call. Errors are swallowed: a log sink must
// never be the reason an RPC call fails.
func (s *Sinker) Record(r rpc.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.enc.Encode(entry{
		ServiceID:   r.ServiceID,
		MethodID:    r.MethodID,
		CallID:      r.CallID,
		Outcome:     r.Outcome,
		Status:      r.Status,
		DurationMS:  r.Duration.Milliseconds(),
		PayloadSize: r.PayloadSize,
		TraceID:     r.Trace.TraceID.String(),
		SpanID:      r.Trace.SpanID.String(),
	})
}

// Close releases the underlying writer. A no-op if writing to stdout.
func (s *Sinker) Close() error {
	if s.wr == os.Stdout {
		return nil
	}
	return s.wr.Close()
}
