package callcore

import (
	"encoding/binary"
	"fmt"
	"io"

	"google.golang.org/grpc/codes"
)

// frameHeaderLen is the length of the length-prefixed record header: 1
// compression-flag byte, then a 4-byte big-endian unsigned payload length.
// Spec §6: "Each message on the stream is preceded by a 5-byte header."
const frameHeaderLen = 5

// compressionFlag values for the frame header's first byte.
const (
	compressionIdentity byte = 0
	compressionEnabled  byte = 1
)

// EncodeFrame writes a length-prefixed record for payload to w: a 5-byte
// header (compression flag, then 4-byte big-endian length) followed by the
// payload bytes. A zero-length payload is written as 5 header bytes and no
// body, per spec §8's boundary behavior ("00 00 00 00 00").
func EncodeFrame(w io.Writer, compressed bool, payload []byte) error {
	var header [frameHeaderLen]byte
	if compressed {
		header[0] = compressionEnabled
	} else {
		header[0] = compressionIdentity
	}
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// FrameReader incrementally decodes length-prefixed records from a stream
// of bytes delivered in arbitrary-sized chunks. It holds no goroutine or
// executor affinity of its own; its caller ([Call.DeliverResponseBytes])
// drives it from whatever context bytes arrive on.
//
// Reader policy (spec §6): accumulate bytes until the header is fully
// present, then until the payload is fully present, then emit the message
// and repeat.
type FrameReader struct {
	maxLen int // 0 means unbounded

	buf           []byte
	haveHeader    bool
	compressed    bool
	payloadLen    uint32
}

// NewFrameReader constructs a [FrameReader]. maxLen bounds the accepted
// payload length (spec §6: "Maximum receive length is a configurable cap;
// exceeding it yields RESOURCE_EXHAUSTED"); zero means unbounded.
func NewFrameReader(maxLen int) *FrameReader {
	return &FrameReader{maxLen: maxLen}
}

// Feed appends newly-received bytes to the reader's internal buffer.
func (r *FrameReader) Feed(p []byte) {
	r.buf = append(r.buf, p...)
}

// Next attempts to decode one complete frame from the buffered bytes. It
// returns ok=false (with a nil error) when more bytes are needed. A
// non-nil error indicates a protocol violation (oversize message), which
// the caller should surface as spec §7's protocol-error status (INTERNAL
// for framing errors, RESOURCE_EXHAUSTED for the size cap specifically).
func (r *FrameReader) Next() (payload []byte, compressed bool, ok bool, err error) {
	if !r.haveHeader {
		if len(r.buf) < frameHeaderLen {
			return nil, false, false, nil
		}
		header := r.buf[:frameHeaderLen]
		length := binary.BigEndian.Uint32(header[1:])
		if r.maxLen > 0 && int(length) > r.maxLen {
			return nil, false, false, New(codes.ResourceExhausted,
				fmt.Sprintf("callcore: received message of length %d exceeds maximum %d", length, r.maxLen)).Err()
		}
		r.compressed = header[0] == compressionEnabled
		r.payloadLen = length
		r.buf = r.buf[frameHeaderLen:]
		r.haveHeader = true
	}

	if uint32(len(r.buf)) < r.payloadLen {
		return nil, false, false, nil
	}

	payload = r.buf[:r.payloadLen]
	r.buf = r.buf[r.payloadLen:]
	compressed = r.compressed
	r.haveHeader = false
	r.payloadLen = 0
	return payload, compressed, true, nil
}
