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

// Package tracekit provides trace/span correlation IDs for call records,
// built directly on go.opentelemetry.io/otel/trace rather than pulling in
// the collector's pdata module for two plain 16/8-byte arrays.
package tracekit

import (
	"crypto/rand"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

const headerTraceParent = "traceparent"

// TraceContext is a parsed W3C traceparent.
type TraceContext struct {
	TraceID trace.TraceID
	SpanID  trace.SpanID
}

// TraceIDFromHTTPHeader extracts a TraceContext from an HTTP traceparent
// header of the form:
//
//	traceparent: 00-{trace-id}-{parent-id}-{trace-flags}
func TraceIDFromHTTPHeader(h http.Header) (TraceContext, bool) {
	var empty TraceContext
	s := h.Get(headerTraceParent)
	if s == "" {
		return empty, false
	}

	parts := strings.Split(s, "-")
	if len(parts) != 4 {
		return empty, false
	}

	if parts[0] != "00" {
		return empty, false
	}

	traceID, err := trace.TraceIDFromHex(parts[1])
	if err != nil {
		return empty, false
	}

	spanID, err := trace.SpanIDFromHex(parts[2])
	if err != nil {
		return empty, false
	}

	return TraceContext{TraceID: traceID, SpanID: spanID}, true
}

// RandomTraceID generates a random TraceID for a call that has no inbound
// trace context of its own to correlate with.
func RandomTraceID() trace.TraceID {
	var id trace.TraceID
	_, _ = rand.Read(id[:])
	return id
}

// RandomSpanID generates a random SpanID.
func RandomSpanID() trace.SpanID {
	var id trace.SpanID
	_, _ = rand.Read(id[:])
	return id
}
