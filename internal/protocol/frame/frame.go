// Package frame delimits envelopes on an unstructured byte stream.
//
// One record is COBS(payload || crc32le(payload)) terminated by a single
// 0x00 byte. COBS guarantees the encoded body contains no zeros, so 0x00 is
// an unambiguous boundary and a recovery point after corruption: a decoder
// that loses sync discards bytes up to the next 0x00 and continues. The
// CRC32 trailer (IEEE, little-endian) rejects corrupt records that happen to
// COBS-decode.
package frame

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

const (
	// Delimiter terminates every record and doubles as the resync marker.
	Delimiter byte = 0x00

	crcLen = 4

	// DefaultMaxFrame bounds decoder memory. Large enough for a maximum
	// chunk plus envelope and COBS overhead.
	DefaultMaxFrame = 16 * 1024
)

var (
	ErrFrameTooShort = errors.New("frame: record too short")
	ErrFrameTooLong  = errors.New("frame: record exceeds limit")
	ErrChecksum      = errors.New("frame: crc32 mismatch")
	ErrCOBS          = errors.New("frame: cobs decode failed")
)

// A FramingError reports a corrupt record. The decoder has already discarded
// the record and resynchronized at the next delimiter; the caller may read
// the next frame or initiate a sync exchange.
type FramingError struct {
	Cause error
}

func (e *FramingError) Error() string { return fmt.Sprintf("frame: corrupt record: %v", e.Cause) }
func (e *FramingError) Unwrap() error { return e.Cause }

// Writer frames payloads onto a byte stream.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame encodes one payload as a single delimited record.
func (w *Writer) WriteFrame(payload []byte) error {
	buf := make([]byte, len(payload)+crcLen)
	copy(buf, payload)
	binary.LittleEndian.PutUint32(buf[len(payload):], crc32.ChecksumIEEE(payload))
	rec := cobsEncode(buf)
	rec = append(rec, Delimiter)
	if _, err := w.w.Write(rec); err != nil {
		return err
	}
	return nil
}

// WriteDelimiter writes a lone delimiter, separating anything the peer has
// already buffered from the records that follow. Sent once at connect.
func (w *Writer) WriteDelimiter() error {
	_, err := w.w.Write([]byte{Delimiter})
	return err
}

// Scanner yields an unbounded sequence of decoded frame payloads from a byte
// stream. It is restartable: after a *FramingError the stream position is at
// a record boundary and Next may be called again.
type Scanner struct {
	r        *bufio.Reader
	maxFrame int
}

func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r), maxFrame: DefaultMaxFrame}
}

// SetMaxFrame overrides the record size limit.
func (s *Scanner) SetMaxFrame(n int) {
	if n > 0 {
		s.maxFrame = n
	}
}

// Next reads the next record and returns its decoded payload. Zero-length
// records (back-to-back delimiters) are skipped silently. A corrupt record
// returns *FramingError with the stream already resynchronized; transport
// errors are returned as-is.
func (s *Scanner) Next() ([]byte, error) {
	for {
		rec, err := s.readRecord()
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		payload, err := s.decodeRecord(rec)
		if err != nil {
			return nil, &FramingError{Cause: err}
		}
		return payload, nil
	}
}

func (s *Scanner) readRecord() ([]byte, error) {
	rec := make([]byte, 0, 256)
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(rec) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if b == Delimiter {
			return rec, nil
		}
		rec = append(rec, b)
		if len(rec) > s.maxFrame {
			// Oversized record: drain through the next delimiter so the
			// stream stays aligned, then report.
			if err := s.discardToDelimiter(); err != nil {
				return nil, err
			}
			return nil, &FramingError{Cause: ErrFrameTooLong}
		}
	}
}

func (s *Scanner) discardToDelimiter() error {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return err
		}
		if b == Delimiter {
			return nil
		}
	}
}

func (s *Scanner) decodeRecord(rec []byte) ([]byte, error) {
	buf, err := cobsDecode(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCOBS, err)
	}
	if len(buf) < crcLen+1 {
		return nil, ErrFrameTooShort
	}
	payload := buf[:len(buf)-crcLen]
	want := binary.LittleEndian.Uint32(buf[len(buf)-crcLen:])
	if got := crc32.ChecksumIEEE(payload); got != want {
		return nil, fmt.Errorf("%w: received 0x%08x, calculated 0x%08x", ErrChecksum, want, got)
	}
	return payload, nil
}
