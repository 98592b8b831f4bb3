// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2).
var encMode cbor.EncMode

// decMode is the CBOR decoder. It is strict about the things that
// would make two encodings of one value decode differently: duplicate
// map keys and indefinite-length items are rejected.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Metadata maps always have string keys. Without this the
		// decoder picks map[interface{}]interface{} for any-typed
		// targets, which Normalize would then have to convert.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		DupMapKey:      cbor.DupMapKeyEnforcedAPF,
		IndefLength:    cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// MarshalValue normalizes value and encodes the result, so two
// values that compare equal after normalization always produce the
// same bytes.
func MarshalValue(value any) ([]byte, error) {
	normalized, err := Normalize(value)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(normalized)
}

// UnmarshalValue decodes a single CBOR item and returns it in
// canonical form.
func UnmarshalValue(data []byte) (any, error) {
	var decoded any
	if err := decMode.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}
	return Normalize(decoded)
}
