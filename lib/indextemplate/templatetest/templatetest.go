// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package templatetest generates random index templates and
// single-field mutations for property tests.
//
// [RandomFields] covers every combination of present and absent
// optional fields, including a present template unit whose members
// are individually absent. [Mutation] enumerates one mutation kind per
// field; [Mutation.Apply] returns a template differing from its input
// in exactly that field. [Template] and [Mutations] wrap both as
// gopter generators.
//
// Metadata from [RandomFields] has the small string-only shape seen in
// real templates. [RandomMetadataValues] and [TemplateWithMetadataValues]
// instead draw from every value kind lib/codec normalizes: integers at
// the int64 and uint64 limits, integral and fractional floats, booleans,
// nulls, arrays, nested objects, and multibyte or escaped strings.
package templatetest

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"

	"github.com/bureau-foundation/clustermeta/lib/compressed"
	"github.com/bureau-foundation/clustermeta/lib/indextemplate"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RandomTemplate returns a valid random template.
func RandomTemplate(rng *rand.Rand) *indextemplate.IndexTemplate {
	template, err := indextemplate.New(RandomFields(rng))
	if err != nil {
		panic("templatetest: random fields failed validation: " + err.Error())
	}
	return template
}

// RandomFields returns random valid fields: one to four index
// patterns, zero to ten component names, and each optional field
// present with probability one half.
func RandomFields(rng *rand.Rand) indextemplate.Fields {
	fields := indextemplate.Fields{
		IndexPatterns: randomList(rng, 1, 4, 4),
		ComposedOf:    randomList(rng, 0, 10, 5),
	}
	if coin(rng) {
		fields.Template = randomTemplateUnit(rng, false)
	}
	if coin(rng) {
		fields.ComposedOf = nil
	}
	if coin(rng) {
		fields.Priority = pointer(randomUnsigned(rng))
	}
	if coin(rng) {
		fields.Version = pointer(randomUnsigned(rng))
	}
	if coin(rng) {
		fields.Metadata = randomMetadata(rng)
	}
	return fields
}

// Mutation is a kind of single-field change.
type Mutation uint8

const (
	MutateIndexPatterns Mutation = iota
	MutateTemplate
	MutateComposedOf
	MutatePriority
	MutateVersion
	MutateMetadata
)

// AllMutations lists every mutation kind, one per template field.
var AllMutations = []Mutation{
	MutateIndexPatterns,
	MutateTemplate,
	MutateComposedOf,
	MutatePriority,
	MutateVersion,
	MutateMetadata,
}

// Field returns the template field the mutation changes.
func (m Mutation) Field() indextemplate.Field {
	switch m {
	case MutateIndexPatterns:
		return indextemplate.FieldIndexPatterns
	case MutateTemplate:
		return indextemplate.FieldTemplate
	case MutateComposedOf:
		return indextemplate.FieldComposedOf
	case MutatePriority:
		return indextemplate.FieldPriority
	case MutateVersion:
		return indextemplate.FieldVersion
	case MutateMetadata:
		return indextemplate.FieldMetadata
	default:
		panic(fmt.Sprintf("templatetest: unknown mutation %d", m))
	}
}

func (m Mutation) String() string {
	return "mutate " + m.Field().String()
}

// Apply returns a copy of original whose m.Field() holds a different
// value and whose other fields are unchanged. Optional fields that are
// present are sometimes mutated to absent.
func (m Mutation) Apply(rng *rand.Rand, original *indextemplate.IndexTemplate) *indextemplate.IndexTemplate {
	// Rejection sampling: draw candidates until one differs from the
	// original in the mutated field. Every generator below has far
	// more than one possible value, so this terminates quickly.
	for {
		fields := original.Fields()
		switch m {
		case MutateIndexPatterns:
			fields.IndexPatterns = randomList(rng, 1, 4, 4)
		case MutateTemplate:
			fields.Template = randomTemplateUnit(rng, true)
			if original.Template() != nil && rng.IntN(4) == 0 {
				fields.Template = nil
			}
		case MutateComposedOf:
			fields.ComposedOf = randomList(rng, 0, 10, 5)
			if original.ComposedOf() != nil && rng.IntN(4) == 0 {
				fields.ComposedOf = nil
			}
		case MutatePriority:
			fields.Priority = pointer(randomUnsigned(rng))
			if _, present := original.Priority(); present && rng.IntN(4) == 0 {
				fields.Priority = nil
			}
		case MutateVersion:
			fields.Version = pointer(randomUnsigned(rng))
			if _, present := original.Version(); present && rng.IntN(4) == 0 {
				fields.Version = nil
			}
		case MutateMetadata:
			fields.Metadata = randomMetadata(rng)
			if original.Metadata() != nil && rng.IntN(4) == 0 {
				fields.Metadata = nil
			}
		default:
			panic(fmt.Sprintf("templatetest: unknown mutation %d", m))
		}

		mutated, err := indextemplate.New(fields)
		if err != nil {
			panic("templatetest: mutated fields failed validation: " + err.Error())
		}
		if !indextemplate.Compute(original, mutated).IsEmpty() {
			return mutated
		}
	}
}

// Mutate applies a randomly chosen mutation kind and returns the
// result with the kind used.
func Mutate(rng *rand.Rand, original *indextemplate.IndexTemplate) (*indextemplate.IndexTemplate, Mutation) {
	m := AllMutations[rng.IntN(len(AllMutations))]
	return m.Apply(rng, original), m
}

// Template is a gopter generator of random valid templates. Shrinking
// is not supported: each value is derived from a random seed.
func Template() gopter.Gen {
	return gen.UInt64().Map(func(seed uint64) *indextemplate.IndexTemplate {
		return RandomTemplate(NewRand(seed))
	})
}

// TemplateWithMetadataValues is a gopter generator of random valid
// templates whose metadata comes from [RandomMetadataValues].
func TemplateWithMetadataValues() gopter.Gen {
	return gen.UInt64().Map(func(seed uint64) *indextemplate.IndexTemplate {
		rng := NewRand(seed)
		fields := RandomFields(rng)
		fields.Metadata = RandomMetadataValues(rng)
		template, err := indextemplate.New(fields)
		if err != nil {
			panic("templatetest: metadata values failed validation: " + err.Error())
		}
		return template
	})
}

// MetadataValues is a gopter generator of raw, unnormalized metadata
// maps from [RandomMetadataValues].
func MetadataValues() gopter.Gen {
	return gen.UInt64().Map(func(seed uint64) map[string]any {
		return RandomMetadataValues(NewRand(seed))
	})
}

// Mutations is a gopter generator of mutation kinds.
func Mutations() gopter.Gen {
	return gen.IntRange(0, len(AllMutations)-1).Map(func(index int) Mutation {
		return AllMutations[index]
	})
}

// randomTemplateUnit returns a template unit. When full is set every
// member is present, matching how mutations replace the unit.
func randomTemplateUnit(rng *rand.Rand, full bool) *indextemplate.Template {
	unit := &indextemplate.Template{}
	if full || coin(rng) {
		unit.Settings = map[string]string{randomAlpha(rng, 4): randomAlpha(rng, 10)}
	}
	if full || coin(rng) {
		unit.Mappings = randomMappings(rng)
	}
	if full || coin(rng) {
		unit.Aliases = randomAliases(rng)
	}
	return unit
}

func randomMappings(rng *rand.Rand) *compressed.Document {
	algorithms := []compressed.Algorithm{compressed.None, compressed.LZ4, compressed.Zstd}
	document, err := compressed.FromValue(
		map[string]any{randomAlpha(rng, 3): randomAlpha(rng, 7)},
		algorithms[rng.IntN(len(algorithms))],
	)
	if err != nil {
		panic("templatetest: building mappings: " + err.Error())
	}
	return document
}

func randomAliases(rng *rand.Rand) map[string]indextemplate.AliasMetadata {
	filter, err := compressed.FromValue(map[string]any{randomAlpha(rng, 2): randomAlpha(rng, 2)}, compressed.None)
	if err != nil {
		panic("templatetest: building alias filter: " + err.Error())
	}
	alias := indextemplate.AliasMetadata{Filter: filter}
	if coin(rng) {
		routing := randomAlpha(rng, 3)
		alias.IndexRouting = &routing
		alias.SearchRouting = &routing
	}
	if coin(rng) {
		alias.IsHidden = pointer(coin(rng))
	}
	if coin(rng) {
		alias.IsWriteIndex = pointer(coin(rng))
	}
	return map[string]indextemplate.AliasMetadata{randomAlpha(rng, 5): alias}
}

// randomMetadata returns one key mapping either to a string or to a
// nested single-entry object.
func randomMetadata(rng *rand.Rand) map[string]any {
	if coin(rng) {
		return map[string]any{randomAlpha(rng, 4): randomAlpha(rng, 4)}
	}
	return map[string]any{
		randomAlpha(rng, 5): map[string]any{randomAlpha(rng, 4): randomAlpha(rng, 4)},
	}
}

// RandomMetadataValues returns a metadata map of up to six entries
// whose values are nested at most three levels deep. Values use the
// Go types decoders produce before normalization (int, uint64, float32,
// []string, map[any]any and so on).
func RandomMetadataValues(rng *rand.Rand) map[string]any {
	return randomObject(rng, 3)
}

// metadataStrings are strings every encoding must carry unchanged.
var metadataStrings = []string{
	"",
	"журнал",
	"日本語",
	"🚀 launch",
	"quote\" and \\ backslash",
	"tab\tnewline\n",
	"line\u2028separator",
	"<html>&amp;",
	"nul\x00byte",
	"é",
}

// metadataFloats are floats at the boundaries of normalization:
// integral values on both sides of 2^63 and 2^64, subnormals, and the
// largest finite value.
var metadataFloats = []float64{
	0,
	0.5,
	-2.25,
	1e-7,
	1e21,
	1e19,
	-1e19,
	math.Ldexp(1, 63),
	math.Ldexp(1, 64),
	math.Ldexp(1, 64) - 2048,
	math.MaxFloat64,
	math.SmallestNonzeroFloat64,
	-math.MaxFloat64,
}

func randomObject(rng *rand.Rand, depth int) map[string]any {
	count := rng.IntN(7)
	object := make(map[string]any, count)
	for range count {
		object[randomKey(rng)] = randomValue(rng, depth)
	}
	return object
}

func randomKey(rng *rand.Rand) string {
	if rng.IntN(4) == 0 {
		return metadataStrings[rng.IntN(len(metadataStrings))]
	}
	return randomAlpha(rng, 1+rng.IntN(6))
}

func randomValue(rng *rand.Rand, depth int) any {
	kinds := 14
	if depth <= 0 {
		kinds = 11
	}
	switch rng.IntN(kinds) {
	case 0:
		return nil
	case 1:
		return coin(rng)
	case 2:
		return metadataStrings[rng.IntN(len(metadataStrings))]
	case 3:
		return rng.IntN(1000) - 500
	case 4:
		return []int64{math.MinInt64, math.MaxInt64, rng.Int64(), -rng.Int64()}[rng.IntN(4)]
	case 5:
		return uint64(math.MaxInt64) + 1 + rng.Uint64N(math.MaxInt64)
	case 6:
		return uint64(math.MaxUint64)
	case 7:
		return metadataFloats[rng.IntN(len(metadataFloats))]
	case 8:
		return rng.NormFloat64() * math.Pow(10, float64(rng.IntN(40)-20))
	case 9:
		return float32(rng.Float64())
	case 10:
		return randomAlpha(rng, rng.IntN(8))
	case 11:
		values := make([]any, rng.IntN(4))
		for i := range values {
			values[i] = randomValue(rng, depth-1)
		}
		return values
	case 12:
		return []string{randomAlpha(rng, 3), metadataStrings[rng.IntN(len(metadataStrings))]}
	default:
		if coin(rng) {
			nested := make(map[any]any)
			for key, value := range randomObject(rng, depth-1) {
				nested[key] = value
			}
			return nested
		}
		return randomObject(rng, depth-1)
	}
}

func randomList(rng *rand.Rand, minimum, maximum, length int) []string {
	count := minimum + rng.IntN(maximum-minimum+1)
	values := make([]string, count)
	for i := range values {
		values[i] = randomAlpha(rng, length)
	}
	return values
}

func randomAlpha(rng *rand.Rand, length int) string {
	buffer := make([]byte, length)
	for i := range buffer {
		buffer[i] = letters[rng.IntN(len(letters))]
	}
	return string(buffer)
}

// randomUnsigned returns a value in [0, 2^63), the range of a
// non-negative signed 64-bit integer.
func randomUnsigned(rng *rand.Rand) uint64 {
	return uint64(rng.Int64())
}

func coin(rng *rand.Rand) bool {
	return rng.IntN(2) == 0
}

func pointer[T any](value T) *T {
	return &value
}
