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

package splitio

import (
	"bytes"
)

var (
	CharCRLF = []byte("\r\n")
	CharCR   = []byte("\r")
	CharLF   = []byte("\n")
)

// Scanner splits buf on a single delimiter byte without copying. Each chunk
// returned by Bytes includes its trailing delimiter, if one was found.
type Scanner struct {
	l, r  int
	buf   []byte
	delim byte
}

// NewScanner returns a *Scanner splitting buf on '\n'.
//
// Keeping the trailing delimiter attached to each chunk lets callers that
// need it (CRLF vs LF detection) inspect it without rescanning. This is
// faster than *bufio.Scanner for this use case since the latter copies buf
// into its own internal buffer; see the benchmarks in scanner_test.go.
func NewScanner(b []byte) *Scanner {
	return NewScannerDelim(b, CharLF[0])
}

// NewScannerDelim returns a *Scanner splitting buf on an arbitrary delimiter
// byte, for callers that aren't scanning line-oriented text.
func NewScannerDelim(b []byte, delim byte) *Scanner {
	return &Scanner{
		buf:   b,
		delim: delim,
	}
}

// Scan advances to the next delimiter-terminated chunk and reports whether
// one was found.
func (s *Scanner) Scan() bool {
	s.l = s.r
	if len(s.buf) == s.l {
		return false
	}

	idx := bytes.IndexByte(s.buf[s.l:], s.delim)
	if idx == -1 {
		s.r = len(s.buf)
	} else {
		s.r = s.l + idx + 1
	}
	return true
}

// Bytes returns the chunk found by the last Scan. Copy it before mutating or
// retaining it past the next Scan call.
func (s *Scanner) Bytes() []byte {
	return s.buf[s.l:s.r]
}
