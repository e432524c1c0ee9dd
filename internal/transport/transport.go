// Package transport carries envelopes across a byte stream for contexts that
// run in separate processes. Frames are length-prefixed CBOR so binary
// payloads survive without base64 inflation.
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/lexide/lexide/internal/logging"
	"github.com/lexide/lexide/internal/message"
)

// DefaultMaxFrame bounds a single encoded envelope (4 MB).
const DefaultMaxFrame = 4 << 20

// MaxFrameHardLimit is the ceiling no configuration may exceed (16 MB).
const MaxFrameHardLimit = 16 << 20

// ErrReaderClosed is returned when reading from a closed transport.
var ErrReaderClosed = errors.New("transport reader is closed")

// FrameTooLargeError is returned for frames exceeding the configured limit.
type FrameTooLargeError struct {
	Size  int
	Limit int
}

// Error implements the error interface.
func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("frame size %d exceeds limit %d", e.Size, e.Limit)
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("transport: CBOR encoder initialization failed: " + err.Error())
	}
}

// FrameWriter writes length-prefixed CBOR envelopes to a stream. Safe for
// concurrent use; frames are never interleaved.
type FrameWriter struct {
	mu       sync.Mutex
	w        io.Writer
	maxFrame int
}

// NewFrameWriter creates a writer with the default frame limit.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w, maxFrame: DefaultMaxFrame}
}

// SetMaxFrame adjusts the frame size limit, capped at the hard limit.
func (fw *FrameWriter) SetMaxFrame(n int) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if n > 0 && n <= MaxFrameHardLimit {
		fw.maxFrame = n
	}
}

// WriteEnvelope encodes and writes one envelope.
func (fw *FrameWriter) WriteEnvelope(env message.Envelope) error {
	data, err := encMode.Marshal(&env)
	if err != nil {
		return err
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if len(data) > fw.maxFrame {
		return &FrameTooLargeError{Size: len(data), Limit: fw.maxFrame}
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := fw.w.Write(prefix[:]); err != nil {
		return err
	}
	_, err = fw.w.Write(data)
	return err
}

// Port returns a message.Port that posts envelopes onto the stream.
func (fw *FrameWriter) Port() message.Port {
	return message.PortFunc(fw.WriteEnvelope)
}

// FrameReader reads length-prefixed CBOR envelopes from a stream.
type FrameReader struct {
	r        io.Reader
	maxFrame int
}

// NewFrameReader creates a reader with the default frame limit.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, maxFrame: DefaultMaxFrame}
}

// SetMaxFrame adjusts the frame size limit, capped at the hard limit.
func (fr *FrameReader) SetMaxFrame(n int) {
	if n > 0 && n <= MaxFrameHardLimit {
		fr.maxFrame = n
	}
}

// ReadEnvelope reads one envelope. io.EOF signals a clean end of stream.
func (fr *FrameReader) ReadEnvelope() (message.Envelope, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(fr.r, prefix[:]); err != nil {
		return message.Envelope{}, err
	}

	size := int(binary.BigEndian.Uint32(prefix[:]))
	if size > fr.maxFrame || size > MaxFrameHardLimit {
		return message.Envelope{}, &FrameTooLargeError{Size: size, Limit: fr.maxFrame}
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		return message.Envelope{}, err
	}

	var env message.Envelope
	if err := cbor.Unmarshal(buf, &env); err != nil {
		return message.Envelope{}, err
	}
	return env, nil
}

// Pump reads envelopes until the stream ends or a decode error occurs,
// posting each to dst. It is meant to run on its own goroutine; the returned
// error is nil on clean EOF.
func Pump(fr *FrameReader, dst message.Port, log logging.Logger) error {
	if log == nil {
		log = logging.NoOp{}
	}
	for {
		env, err := fr.ReadEnvelope()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := dst.Post(env); err != nil {
			log.Warn("inbound envelope dropped", "action", env.Action, "error", err)
		}
	}
}
