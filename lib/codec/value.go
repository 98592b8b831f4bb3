// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// ErrInvalidUTF8 is wrapped by Normalize errors for strings and map
// keys that are not valid UTF-8. CBOR text strings must be UTF-8.
var ErrInvalidUTF8 = errors.New("string is not valid UTF-8")

// Normalize converts a decoded structured value into the canonical
// form described in the package documentation. The input is not
// modified; maps and slices in the result are freshly allocated.
func Normalize(value any) (any, error) {
	switch typed := value.(type) {
	case nil, bool:
		return typed, nil
	case string:
		if !utf8.ValidString(typed) {
			return nil, fmt.Errorf("%q: %w", typed, ErrInvalidUTF8)
		}
		return typed, nil
	case int:
		return int64(typed), nil
	case int8:
		return int64(typed), nil
	case int16:
		return int64(typed), nil
	case int32:
		return int64(typed), nil
	case int64:
		return typed, nil
	case uint:
		return normalizeUnsigned(uint64(typed)), nil
	case uint8:
		return int64(typed), nil
	case uint16:
		return int64(typed), nil
	case uint32:
		return int64(typed), nil
	case uint64:
		return normalizeUnsigned(typed), nil
	case float32:
		return normalizeFloat(float64(typed))
	case float64:
		return normalizeFloat(typed)
	case json.Number:
		return normalizeNumber(typed)
	case []any:
		result := make([]any, len(typed))
		for i, element := range typed {
			normalized, err := Normalize(element)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			result[i] = normalized
		}
		return result, nil
	case []string:
		result := make([]any, len(typed))
		for i, element := range typed {
			if !utf8.ValidString(element) {
				return nil, fmt.Errorf("[%d]: %q: %w", i, element, ErrInvalidUTF8)
			}
			result[i] = element
		}
		return result, nil
	case map[string]any:
		result := make(map[string]any, len(typed))
		for key, element := range typed {
			if !utf8.ValidString(key) {
				return nil, fmt.Errorf("key %q: %w", key, ErrInvalidUTF8)
			}
			normalized, err := Normalize(element)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			result[key] = normalized
		}
		return result, nil
	case map[any]any:
		result := make(map[string]any, len(typed))
		for key, element := range typed {
			name, ok := key.(string)
			if !ok {
				return nil, fmt.Errorf("map key %v has type %T, want string", key, key)
			}
			if !utf8.ValidString(name) {
				return nil, fmt.Errorf("key %q: %w", name, ErrInvalidUTF8)
			}
			normalized, err := Normalize(element)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			result[name] = normalized
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", value)
	}
}

// NormalizeMap normalizes a map value. It is Normalize with the
// result type fixed, for callers that require an object.
func NormalizeMap(value map[string]any) (map[string]any, error) {
	if value == nil {
		return nil, nil
	}
	normalized, err := Normalize(value)
	if err != nil {
		return nil, err
	}
	return normalized.(map[string]any), nil
}

func normalizeUnsigned(value uint64) any {
	if value <= math.MaxInt64 {
		return int64(value)
	}
	return value
}

// two63 and two64 are 2^63 and 2^64 as float64. Every float in
// [-two63, two63) with no fractional part converts to int64 exactly,
// and every float in [two63, two64) is an integer that fits uint64.
const (
	two63 = float64(1 << 63)
	two64 = two63 * 2
)

// normalizeFloat maps integral floats onto the integer form that
// normalizeNumber produces for the same decimal text, so a value
// printed by encoding/json reads back equal.
func normalizeFloat(value float64) (any, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("number %v is not finite", value)
	}
	if value != math.Trunc(value) {
		return value, nil
	}
	switch {
	case value >= -two63 && value < two63:
		return int64(value), nil
	case value >= two63 && value < two64:
		return uint64(value), nil
	}
	return value, nil
}

func normalizeNumber(number json.Number) (any, error) {
	if integer, err := number.Int64(); err == nil {
		return integer, nil
	}
	if unsigned, err := strconv.ParseUint(number.String(), 10, 64); err == nil {
		return normalizeUnsigned(unsigned), nil
	}
	float, err := number.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", number.String())
	}
	return normalizeFloat(float)
}

// Equal reports whether two canonical values are structurally equal.
// Both arguments must already be normalized; a nil map and an empty
// map are different values.
func Equal(left, right any) bool {
	switch typed := left.(type) {
	case nil:
		return right == nil
	case bool:
		other, ok := right.(bool)
		return ok && typed == other
	case string:
		other, ok := right.(string)
		return ok && typed == other
	case int64:
		other, ok := right.(int64)
		return ok && typed == other
	case uint64:
		other, ok := right.(uint64)
		return ok && typed == other
	case float64:
		other, ok := right.(float64)
		return ok && typed == other
	case []any:
		other, ok := right.([]any)
		if !ok || len(typed) != len(other) {
			return false
		}
		for i := range typed {
			if !Equal(typed[i], other[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		other, ok := right.(map[string]any)
		return ok && EqualMaps(typed, other)
	default:
		return false
	}
}

// EqualMaps reports whether two canonical maps are equal. nil and
// empty maps differ.
func EqualMaps(left, right map[string]any) bool {
	if (left == nil) != (right == nil) || len(left) != len(right) {
		return false
	}
	for key, value := range left {
		other, present := right[key]
		if !present || !Equal(value, other) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of a canonical value.
func Clone(value any) any {
	switch typed := value.(type) {
	case []any:
		result := make([]any, len(typed))
		for i, element := range typed {
			result[i] = Clone(element)
		}
		return result
	case map[string]any:
		return CloneMap(typed)
	default:
		return value
	}
}

// CloneMap returns a deep copy of a canonical map, preserving nil.
func CloneMap(value map[string]any) map[string]any {
	if value == nil {
		return nil
	}
	result := make(map[string]any, len(value))
	for key, element := range value {
		result[key] = Clone(element)
	}
	return result
}
