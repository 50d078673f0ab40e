// Package stream provides a constant-memory scanner for oversized chat
// export documents.
//
// A full Discord export can run to gigabytes, far too large to
// json.Unmarshal wholesale. The scanner finds the top-level "messages"
// array by its marker token and then walks the element objects one at a
// time, holding at most one element's bytes in memory. Malformed
// elements are logged and skipped; the scan never aborts.
package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"go.uber.org/zap"
)

// DefaultMarker is the token that opens the messages array in a Discord
// chat export.
const DefaultMarker = `"messages": [`

// fragmentLogLimit caps how much of a bad fragment is logged.
const fragmentLogLimit = 200

// DecodeFunc parses one self-contained object fragment. The default is
// encoding/json.Unmarshal.
type DecodeFunc func(data []byte, v interface{}) error

type scanState int

const (
	seekingMarker scanState = iota
	scanningObject
)

// Scanner yields the well-formed element objects of a top-level array
// buried inside a larger document. It is a forward-only, non-restartable
// sequence over the underlying reader.
type Scanner struct {
	r      *bufio.Reader
	logger *zap.Logger
	marker []byte
	decode DecodeFunc

	state   scanState
	window  []byte // trailing bytes kept while seeking the marker
	buf     bytes.Buffer
	depth   int
	skipped int
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithMarker overrides the array marker token.
func WithMarker(marker string) Option {
	return func(s *Scanner) { s.marker = []byte(marker) }
}

// WithDecodeFunc overrides the parse-one-object primitive.
func WithDecodeFunc(fn DecodeFunc) Option {
	return func(s *Scanner) { s.decode = fn }
}

// WithLogger sets the logger used for skipped fragments.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// NewScanner wraps r. The scanner owns the reader's position; do not
// read from r concurrently.
func NewScanner(r io.Reader, opts ...Option) *Scanner {
	s := &Scanner{
		r:      bufio.NewReaderSize(r, 128*1024),
		logger: zap.NewNop(),
		marker: []byte(DefaultMarker),
		decode: json.Unmarshal,
		state:  seekingMarker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next decodes the next well-formed array element into v. Elements that
// fail to decode are logged and skipped. Returns io.EOF once the input
// is exhausted; an incomplete trailing fragment is discarded silently.
//
// Brace characters inside quoted string values are counted as
// structural. Fragments mis-split that way fail the decode step and are
// skipped like any other malformed element.
func (s *Scanner) Next(v interface{}) error {
	for {
		ch, err := s.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return io.EOF
			}
			return err
		}

		switch s.state {
		case seekingMarker:
			s.window = append(s.window, ch)
			if len(s.window) > 2*len(s.marker) {
				s.window = s.window[len(s.window)-2*len(s.marker):]
			}
			if bytes.Contains(s.window, s.marker) {
				s.state = scanningObject
				s.window = nil
				s.depth = 0
				s.buf.Reset()
			}

		case scanningObject:
			switch ch {
			case '{':
				if s.depth == 0 {
					s.buf.Reset()
				}
				s.buf.WriteByte(ch)
				s.depth++
			case '}':
				if s.depth > 0 {
					s.depth--
					s.buf.WriteByte(ch)
					if s.depth == 0 {
						ok := s.finishElement(v)
						if ok {
							return nil
						}
					}
				}
			default:
				if s.depth > 0 {
					s.buf.WriteByte(ch)
				}
			}
		}
	}
}

// finishElement attempts to decode the buffered fragment, reporting
// whether it produced a value.
func (s *Scanner) finishElement(v interface{}) bool {
	defer s.buf.Reset()

	if s.buf.Len() == 0 {
		return false
	}
	if err := s.decode(s.buf.Bytes(), v); err != nil {
		s.skipped++
		s.logger.Warn("skipping malformed fragment",
			zap.String("fragment", truncateFragment(s.buf.Bytes())),
			zap.Error(err))
		return false
	}
	return true
}

// Skipped reports how many malformed fragments were discarded so far.
func (s *Scanner) Skipped() int {
	return s.skipped
}

func truncateFragment(b []byte) string {
	frag := b
	if len(frag) > fragmentLogLimit {
		frag = frag[:fragmentLogLimit]
	}
	return string(bytes.ReplaceAll(frag, []byte("\n"), []byte(" ")))
}
