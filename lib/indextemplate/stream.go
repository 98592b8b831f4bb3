// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package indextemplate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// MaxBlockSize bounds every length read from the binary encoding:
// string bytes, element counts, and embedded blocks. Larger values are
// rejected as malformed before anything is allocated.
const MaxBlockSize = 64 << 20

// Presence flag values. Any other byte in a flag position is malformed.
const (
	flagAbsent  byte = 0
	flagPresent byte = 1
)

// encoder writes the primitive elements of the binary encoding. The
// first write error is kept and every later call becomes a no-op, so
// callers check err once at the end.
type encoder struct {
	w       io.Writer
	scratch [binary.MaxVarintLen64]byte
	err     error

	// hashing replaces compressed document blocks with their content
	// digests, which makes the stream a canonical input for
	// IndexTemplate.Hash.
	hashing bool
}

func newEncoder(w io.Writer) *encoder {
	return &encoder{w: w}
}

func (e *encoder) write(data []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(data)
}

func (e *encoder) byte(value byte) {
	e.scratch[0] = value
	e.write(e.scratch[:1])
}

func (e *encoder) uvarint(value uint64) {
	n := binary.PutUvarint(e.scratch[:], value)
	e.write(e.scratch[:n])
}

// presence writes the presence flag and reports whether a payload
// follows.
func (e *encoder) presence(present bool) bool {
	if present {
		e.byte(flagPresent)
	} else {
		e.byte(flagAbsent)
	}
	return present
}

func (e *encoder) boolean(value bool) {
	if value {
		e.byte(1)
	} else {
		e.byte(0)
	}
}

func (e *encoder) block(data []byte) {
	e.uvarint(uint64(len(data)))
	e.write(data)
}

func (e *encoder) string(value string) {
	e.uvarint(uint64(len(value)))
	if e.err != nil {
		return
	}
	_, e.err = io.WriteString(e.w, value)
}

func (e *encoder) strings(values []string) {
	e.uvarint(uint64(len(values)))
	for _, value := range values {
		e.string(value)
	}
}

// decoder reads the primitive elements of the binary encoding. It
// never reads ahead: bytes after the last element requested remain in
// the underlying reader.
type decoder struct {
	r          io.Reader
	byteReader io.ByteReader
	one        [1]byte
}

func newDecoder(r io.Reader) *decoder {
	d := &decoder{r: r}
	if byteReader, ok := r.(io.ByteReader); ok {
		d.byteReader = byteReader
	}
	return d
}

// readByte reads one byte, using the source's ReadByte when it has one.
func (d *decoder) readByte() (byte, error) {
	if d.byteReader != nil {
		return d.byteReader.ReadByte()
	}
	if _, err := io.ReadFull(d.r, d.one[:]); err != nil {
		return 0, err
	}
	return d.one[0], nil
}

func (d *decoder) byte(field string) (byte, error) {
	value, err := d.readByte()
	if err != nil {
		return 0, readError(field, err)
	}
	return value, nil
}

// uvarint reads an unsigned LEB128 varint of at most ten bytes.
func (d *decoder) uvarint(field string) (uint64, error) {
	var value uint64
	var shift uint
	for i := range binary.MaxVarintLen64 {
		b, err := d.readByte()
		if err != nil {
			return 0, readError(field, err)
		}
		if b < 0x80 {
			if i == binary.MaxVarintLen64-1 && b > 1 {
				break
			}
			return value | uint64(b)<<shift, nil
		}
		value |= uint64(b&0x7f) << shift
		shift += 7
	}
	return 0, &FormatError{Field: field, Reason: "varint overflows 64 bits"}
}

// length reads a count or byte length and bounds it by MaxBlockSize.
func (d *decoder) length(field string) (int, error) {
	value, err := d.uvarint(field)
	if err != nil {
		return 0, err
	}
	if value > MaxBlockSize {
		return 0, &FormatError{Field: field, Reason: fmt.Sprintf("length %d exceeds maximum %d", value, MaxBlockSize)}
	}
	return int(value), nil
}

// presence reads a presence flag.
func (d *decoder) presence(field string) (bool, error) {
	flag, err := d.byte(field)
	if err != nil {
		return false, err
	}
	switch flag {
	case flagAbsent:
		return false, nil
	case flagPresent:
		return true, nil
	default:
		return false, &FormatError{Field: field, Reason: fmt.Sprintf("invalid presence flag %#02x", flag)}
	}
}

func (d *decoder) boolean(field string) (bool, error) {
	value, err := d.byte(field)
	if err != nil {
		return false, err
	}
	switch value {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, &FormatError{Field: field, Reason: fmt.Sprintf("invalid boolean %#02x", value)}
	}
}

func (d *decoder) block(field string) ([]byte, error) {
	size, err := d.length(field)
	if err != nil {
		return nil, err
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return nil, readError(field, err)
	}
	return data, nil
}

func (d *decoder) string(field string) (string, error) {
	data, err := d.block(field)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", &FormatError{Field: field, Reason: "string is not valid UTF-8"}
	}
	return string(data), nil
}

func (d *decoder) strings(field string) ([]string, error) {
	count, err := d.length(field)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, min(count, 1024))
	for i := range count {
		value, err := d.string(fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// readError classifies a failed read. End of input anywhere inside a
// value is truncation; anything else is an I/O failure of the
// caller's reader and passes through wrapped.
func readError(field string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &TruncatedInputError{Field: field, Err: io.ErrUnexpectedEOF}
	}
	return fmt.Errorf("indextemplate: reading %s: %w", field, err)
}
