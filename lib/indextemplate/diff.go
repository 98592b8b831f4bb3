// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package indextemplate

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/bureau-foundation/clustermeta/lib/codec"
)

// Diff describes how to turn one version of an index template into
// another. For each field it records either "unchanged" or "replaced"
// together with the replacement value, which may be absent. Diffs
// are whole-value per field: the template unit and the metadata map
// are never patched partially.
//
// A Diff is immutable. The zero Diff replaces nothing.
type Diff struct {
	replaced    [fieldCount]bool
	replacement Fields
}

// Compute returns the diff that turns before into after. Fields equal
// in both are unchanged; every other field is replaced with after's
// value, shared by reference.
func Compute(before, after *IndexTemplate) *Diff {
	d := &Diff{}
	for _, field := range allFields {
		if !field.equal(&before.fields, &after.fields) {
			d.replaced[field] = true
			field.take(&d.replacement, &after.fields)
		}
	}
	return d
}

// NewDiff builds a diff replacing the listed fields with the values in
// replacement, which is deep-copied. Template invariants are left to
// Apply, but replaced strings must be valid UTF-8 (*ValidationError)
// and metadata must hold normalizable values. A replaced nil
// IndexPatterns is stored as empty, the form ReadDiff produces.
func NewDiff(replacement Fields, replaced ...Field) (*Diff, error) {
	metadata, err := codec.NormalizeMap(replacement.Metadata)
	if err != nil {
		return nil, metadataError(err)
	}
	replacement.Metadata = metadata
	copied := (&IndexTemplate{fields: replacement}).Fields()

	d := &Diff{}
	for _, field := range replaced {
		if field >= fieldCount {
			return nil, fmt.Errorf("indextemplate: unknown field %d", field)
		}
		d.replaced[field] = true
		field.take(&d.replacement, &copied)
	}
	if d.replaced[FieldIndexPatterns] && d.replacement.IndexPatterns == nil {
		d.replacement.IndexPatterns = []string{}
	}
	if err := validateText(&d.replacement); err != nil {
		return nil, err
	}
	return d, nil
}

// Apply returns the template produced by applying d to base. Unchanged
// fields share base's values; no field is copied. The result is
// validated, so a diff that would empty the index patterns fails with
// *ValidationError.
func Apply(base *IndexTemplate, d *Diff) (*IndexTemplate, error) {
	if d.IsEmpty() {
		return base, nil
	}
	fields := base.fields
	for _, field := range allFields {
		if d.replaced[field] {
			field.take(&fields, &d.replacement)
		}
	}
	return newShared(fields)
}

// IsEmpty reports whether the diff replaces no field.
func (d *Diff) IsEmpty() bool {
	return d.replaced == [fieldCount]bool{}
}

// Replaced reports whether the diff replaces field.
func (d *Diff) Replaced(field Field) bool {
	return field < fieldCount && d.replaced[field]
}

// ChangedFields returns the replaced fields in encoding order.
func (d *Diff) ChangedFields() []Field {
	var changed []Field
	for _, field := range allFields {
		if d.replaced[field] {
			changed = append(changed, field)
		}
	}
	return changed
}

// Replacement returns a deep copy of the replacement values. Only the
// fields reported by Replaced are meaningful.
func (d *Diff) Replacement() Fields {
	return (&IndexTemplate{fields: d.replacement}).Fields()
}

// Equal reports whether two diffs replace the same fields with equal
// values. Equal diffs produce equal results on every base.
func (d *Diff) Equal(other *Diff) bool {
	if d.replaced != other.replaced {
		return false
	}
	for _, field := range allFields {
		if d.replaced[field] && !field.equal(&d.replacement, &other.replacement) {
			return false
		}
	}
	return true
}

// String lists the replaced fields, for logs.
func (d *Diff) String() string {
	if d.IsEmpty() {
		return "diff{unchanged}"
	}
	names := make([]string, 0, fieldCount)
	for _, field := range d.ChangedFields() {
		names = append(names, field.String())
	}
	return "diff{replaced: " + strings.Join(names, ", ") + "}"
}

// Diff flag values. The flag precedes each field of an encoded diff.
const (
	diffUnchanged byte = 0
	diffReplaced  byte = 1
)

// WriteDiff encodes d to w. Each field is a one-byte flag (0
// unchanged, 1 replaced) followed, when replaced, by the field in the
// template encoding, including its own presence flag for optional
// fields.
func WriteDiff(w io.Writer, d *Diff) error {
	e := newEncoder(w)
	for _, field := range allFields {
		if !d.replaced[field] {
			e.byte(diffUnchanged)
			continue
		}
		e.byte(diffReplaced)
		writeField(e, field, &d.replacement)
	}
	if e.err != nil {
		return fmt.Errorf("indextemplate: writing diff: %w", e.err)
	}
	return nil
}

// ReadDiff decodes a diff written by WriteDiff. Like Read, it stops
// after the known fields. The replacement values are not validated
// against template invariants; Apply does that.
func ReadDiff(r io.Reader) (*Diff, error) {
	dec := newDecoder(r)
	d := &Diff{}
	for _, field := range allFields {
		name := "diff." + field.String()
		flag, err := dec.byte(name)
		if err != nil {
			return nil, err
		}
		switch flag {
		case diffUnchanged:
			continue
		case diffReplaced:
		default:
			return nil, &FormatError{Field: name, Reason: fmt.Sprintf("invalid diff flag %#02x", flag)}
		}
		if err := readField(dec, field, &d.replacement); err != nil {
			return nil, err
		}
		d.replaced[field] = true
	}
	return d, nil
}

// MarshalBinary returns the binary encoding of d.
func (d *Diff) MarshalBinary() ([]byte, error) {
	var buffer bytes.Buffer
	if err := WriteDiff(&buffer, d); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// DecodeDiff decodes a diff from the start of data.
func DecodeDiff(data []byte) (*Diff, error) {
	return ReadDiff(bytes.NewReader(data))
}
