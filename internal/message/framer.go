package message

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"iter"
	"log/slog"

	"github.com/wagiedev/tsserver-go/internal/errors"
)

const (
	// DefaultMaxLineSize is the largest stdout line the framer accepts.
	// Project-wide responses (projectInfo with file lists) can be large.
	DefaultMaxLineSize = 16 * 1024 * 1024

	// contentLengthPrefix marks the header line of the length-prefixed
	// transport framing. The JSON payload follows on its own line.
	contentLengthPrefix = "Content-Length:"
)

// LineKind classifies one line of server output.
type LineKind int

const (
	// LineEmpty is a blank line.
	LineEmpty LineKind = iota
	// LineHeader is a transport header to be ignored.
	LineHeader
	// LineMessage is a line that parsed as a message.
	LineMessage
	// LineNoise is any other output, such as banners.
	LineNoise
	// LineInvalid is a candidate line that failed to parse.
	LineInvalid
)

// DecodeLine classifies a single output line and parses it when it is a
// message candidate. Only lines starting with '{' are candidates.
// A parse failure returns LineInvalid with a *errors.JSONDecodeError.
func DecodeLine(line []byte) (*Message, LineKind, error) {
	line = bytes.TrimRight(line, "\r")

	switch {
	case len(bytes.TrimSpace(line)) == 0:
		return nil, LineEmpty, nil

	case bytes.HasPrefix(line, []byte("{")):
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, LineInvalid, &errors.JSONDecodeError{
				RawData: string(line),
				Err:     err,
			}
		}

		return &msg, LineMessage, nil

	case bytes.HasPrefix(line, []byte(contentLengthPrefix)):
		return nil, LineHeader, nil

	default:
		return nil, LineNoise, nil
	}
}

// Framer converts a newline-delimited output stream into messages.
//
// Framing problems never stop the stream: noise lines are logged at warn
// level and unparseable candidates at error level, then dropped. The
// sequence ends only when the underlying reader does.
type Framer struct {
	log     *slog.Logger
	scanner *bufio.Scanner
	count   int
}

// NewFramer creates a framer reading from r. Lines longer than maxLineSize
// end the stream with bufio.ErrTooLong; a non-positive value selects
// DefaultMaxLineSize.
func NewFramer(log *slog.Logger, r io.Reader, maxLineSize int) *Framer {
	if maxLineSize <= 0 {
		maxLineSize = DefaultMaxLineSize
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, maxLineSize)), maxLineSize)

	return &Framer{
		log:     log.With("component", "framer"),
		scanner: scanner,
	}
}

// Messages yields every successfully parsed message exactly once, in the
// order received. Each yielded message is freshly allocated.
func (f *Framer) Messages() iter.Seq[*Message] {
	return func(yield func(*Message) bool) {
		for f.scanner.Scan() {
			msg, kind, err := DecodeLine(f.scanner.Bytes())

			switch kind {
			case LineMessage:
				f.count++

				if !yield(msg) {
					return
				}

			case LineInvalid:
				f.log.Error("Failed to parse server output", "line", f.scanner.Text(), "error", err)

			case LineNoise:
				f.log.Warn("Unexpected server output", "line", f.scanner.Text())

			case LineEmpty, LineHeader:
			}
		}
	}
}

// Count returns how many messages have been yielded so far.
func (f *Framer) Count() int {
	return f.count
}

// Err returns the first non-EOF read error, like bufio.Scanner.Err.
func (f *Framer) Err() error {
	return f.scanner.Err()
}
