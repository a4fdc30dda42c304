package irc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// CRLF terminates every protocol line.
const CRLF = "\r\n"

// MaxPendingBytes bounds how much unterminated input a Decoder buffers.
const MaxPendingBytes = 64 * 1024

var (
	// ErrInvalidUTF8 is returned when a framed line is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("line is not valid UTF-8")
	// ErrPartialLine is returned at end of stream when bytes remain without a terminator.
	ErrPartialLine = errors.New("partial line at end of stream")
	// ErrPendingOverflow is returned when unterminated input exceeds MaxPendingBytes.
	ErrPendingOverflow = errors.New("unterminated input exceeds buffer limit")
)

// Decoder splits a byte stream into CRLF-terminated lines. It is fed
// incrementally and never discards a partial line.
type Decoder struct {
	buf []byte
}

// Write appends raw bytes to the pending buffer.
func (d *Decoder) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	return len(p), nil
}

// Buffered reports the number of bytes not yet returned as a line.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Decode returns the next complete line with its CRLF removed. ok is false
// when more data is needed; in that case nothing is consumed.
func (d *Decoder) Decode() (line string, ok bool, err error) {
	i := bytes.Index(d.buf, []byte(CRLF))
	if i < 0 {
		if len(d.buf) > MaxPendingBytes {
			return "", false, ErrPendingOverflow
		}
		return "", false, nil
	}

	frame := d.buf[:i]
	if !utf8.Valid(frame) {
		return "", false, ErrInvalidUTF8
	}
	line = string(frame)

	rest := copy(d.buf, d.buf[i+len(CRLF):])
	d.buf = d.buf[:rest]
	return line, true, nil
}

// DecodeEOF is Decode for a stream that has ended: leftover bytes that never
// formed a line are an error.
func (d *Decoder) DecodeEOF() (string, bool, error) {
	line, ok, err := d.Decode()
	if err != nil || ok {
		return line, ok, err
	}
	if len(d.buf) > 0 {
		return "", false, fmt.Errorf("%w: %d bytes", ErrPartialLine, len(d.buf))
	}
	return "", false, nil
}

// Encode appends each line followed by CRLF to dst. Lines are not escaped.
func Encode(dst []byte, lines ...string) []byte {
	for _, line := range lines {
		dst = append(dst, line...)
		dst = append(dst, CRLF...)
	}
	return dst
}

// LineReader reads lines from an io.Reader through a Decoder.
type LineReader struct {
	r   io.Reader
	dec Decoder
	buf []byte
	eof bool
}

// NewLineReader returns a LineReader reading from r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: r, buf: make([]byte, 4096)}
}

// ReadLine returns the next line without its terminator. It returns io.EOF
// once the stream has ended cleanly and ErrPartialLine if it ended mid-line.
func (lr *LineReader) ReadLine() (string, error) {
	for {
		if lr.eof {
			line, ok, err := lr.dec.DecodeEOF()
			if err != nil {
				return "", err
			}
			if ok {
				return line, nil
			}
			return "", io.EOF
		}

		line, ok, err := lr.dec.Decode()
		if err != nil {
			return "", err
		}
		if ok {
			return line, nil
		}

		n, err := lr.r.Read(lr.buf)
		if n > 0 {
			lr.dec.Write(lr.buf[:n])
		}
		if err == io.EOF {
			lr.eof = true
		} else if err != nil {
			return "", err
		}
	}
}
