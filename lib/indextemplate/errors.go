// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package indextemplate

import (
	"errors"
	"fmt"
)

// ValidationError reports a violated invariant of an index template,
// such as an empty index pattern list.
type ValidationError struct {
	// Field is the schema name of the offending field.
	Field string

	// Reason describes the violated invariant.
	Reason string
}

func (err *ValidationError) Error() string {
	return fmt.Sprintf("indextemplate: invalid %s: %s", err.Field, err.Reason)
}

// FormatError reports structurally malformed input to either codec: a
// wrong value type in a structured document, or an invalid presence
// flag, oversized length, or corrupt block in the binary encoding.
type FormatError struct {
	// Field is the dotted path of the field being decoded.
	Field string

	// Reason describes what was wrong.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

func (err *FormatError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("indextemplate: malformed %s: %s: %v", err.Field, err.Reason, err.Err)
	}
	return fmt.Sprintf("indextemplate: malformed %s: %s", err.Field, err.Reason)
}

func (err *FormatError) Unwrap() error { return err.Err }

// SchemaError reports a field name the structured document schema does
// not define. Parsing is strict so that a misspelled field never
// silently drops data.
type SchemaError struct {
	// Path is the dotted path of the enclosing object; empty for the
	// document root.
	Path string

	// Name is the unknown field name.
	Name string
}

func (err *SchemaError) Error() string {
	if err.Path == "" {
		return fmt.Sprintf("indextemplate: unknown field %q", err.Name)
	}
	return fmt.Sprintf("indextemplate: unknown field %q in %s", err.Name, err.Path)
}

// TruncatedInputError reports that a binary stream ended before the
// encoded value was complete.
type TruncatedInputError struct {
	// Field is the field being decoded when input ran out.
	Field string

	// Err is the underlying read error (io.EOF or io.ErrUnexpectedEOF).
	Err error
}

func (err *TruncatedInputError) Error() string {
	return fmt.Sprintf("indextemplate: input truncated while reading %s: %v", err.Field, err.Err)
}

func (err *TruncatedInputError) Unwrap() error { return err.Err }

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsFormat reports whether err is or wraps a *FormatError.
func IsFormat(err error) bool {
	var target *FormatError
	return errors.As(err, &target)
}

// IsSchema reports whether err is or wraps a *SchemaError.
func IsSchema(err error) bool {
	var target *SchemaError
	return errors.As(err, &target)
}

// IsTruncated reports whether err is or wraps a *TruncatedInputError.
func IsTruncated(err error) bool {
	var target *TruncatedInputError
	return errors.As(err, &target)
}
