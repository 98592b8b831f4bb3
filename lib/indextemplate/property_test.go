// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package indextemplate_test

import (
	"bytes"
	"slices"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/bureau-foundation/clustermeta/lib/codec"
	"github.com/bureau-foundation/clustermeta/lib/contenthash"
	"github.com/bureau-foundation/clustermeta/lib/indextemplate"
	"github.com/bureau-foundation/clustermeta/lib/indextemplate/templatetest"
	"github.com/bureau-foundation/clustermeta/lib/testutil"
)

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return gopter.NewProperties(parameters)
}

func TestCodecProperties(t *testing.T) {
	properties := newProperties()

	generators := []struct {
		name      string
		generator gopter.Gen
	}{
		{name: "", generator: templatetest.Template()},
		{name: " with metadata values", generator: templatetest.TemplateWithMetadataValues()},
	}
	for _, source := range generators {
		properties.Property("binary encoding round trips"+source.name, prop.ForAll(
			func(template *indextemplate.IndexTemplate) bool {
				data, err := template.MarshalBinary()
				if err != nil {
					return false
				}
				decoded, err := indextemplate.Decode(data)
				if err != nil || !decoded.Equal(template) {
					return false
				}
				again, err := decoded.MarshalBinary()
				return err == nil && bytes.Equal(again, data) && decoded.Hash() == template.Hash()
			},
			source.generator,
		))

		properties.Property("every strict prefix is truncated input"+source.name, prop.ForAll(
			func(template *indextemplate.IndexTemplate, cut uint64) bool {
				data, err := template.MarshalBinary()
				if err != nil {
					return false
				}
				_, err = indextemplate.Decode(data[:cut%uint64(len(data))])
				return indextemplate.IsTruncated(err)
			},
			source.generator,
			gen.UInt64(),
		))

		properties.Property("structured document round trips"+source.name, prop.ForAll(
			func(template *indextemplate.IndexTemplate) bool {
				document, err := indextemplate.Serialize(template)
				if err != nil {
					return false
				}
				parsed, err := indextemplate.Parse(document)
				return err == nil && parsed.Equal(template) && parsed.Hash() == template.Hash()
			},
			source.generator,
		))

		properties.Property("JSON text round trips"+source.name, prop.ForAll(
			func(template *indextemplate.IndexTemplate) bool {
				text, err := indextemplate.EncodeJSON(template)
				if err != nil {
					return false
				}
				parsed, err := indextemplate.ParseJSON(text, indextemplate.DefaultParseOptions)
				return err == nil && parsed.Equal(template) && parsed.Hash() == template.Hash()
			},
			source.generator,
		))
	}

	properties.Property("metadata normalizes the same through New and the wire", prop.ForAll(
		func(metadata map[string]any) bool {
			template, err := indextemplate.New(indextemplate.Fields{IndexPatterns: []string{"a*"}, Metadata: metadata})
			if err != nil {
				return false
			}
			data, err := template.MarshalBinary()
			if err != nil {
				return false
			}
			decoded, err := indextemplate.Decode(data)
			return err == nil && codec.EqualMaps(decoded.Metadata(), template.Metadata())
		},
		templatetest.MetadataValues(),
	))

	properties.TestingRun(t)
}

func TestDiffProperties(t *testing.T) {
	properties := newProperties()

	properties.Property("diff against self is empty", prop.ForAll(
		func(template *indextemplate.IndexTemplate) bool {
			return indextemplate.Compute(template, template).IsEmpty()
		},
		templatetest.Template(),
	))

	properties.Property("apply reproduces the target", prop.ForAll(
		func(before, after *indextemplate.IndexTemplate) bool {
			result, err := indextemplate.Apply(before, indextemplate.Compute(before, after))
			return err == nil && result.Equal(after)
		},
		templatetest.Template(),
		templatetest.Template(),
	))

	properties.Property("single mutation yields a single-field diff", prop.ForAll(
		func(template *indextemplate.IndexTemplate, mutation templatetest.Mutation, seed uint64) bool {
			mutated := mutation.Apply(templatetest.NewRand(seed), template)
			d := indextemplate.Compute(template, mutated)
			if !slices.Equal(d.ChangedFields(), []indextemplate.Field{mutation.Field()}) {
				return false
			}
			result, err := indextemplate.Apply(template, d)
			return err == nil && result.Equal(mutated)
		},
		templatetest.Template(),
		templatetest.Mutations(),
		gen.UInt64(),
	))

	properties.Property("diff encoding round trips", prop.ForAll(
		func(before, after *indextemplate.IndexTemplate) bool {
			d := indextemplate.Compute(before, after)
			data, err := d.MarshalBinary()
			if err != nil {
				return false
			}
			decoded, err := indextemplate.DecodeDiff(data)
			if err != nil || !decoded.Equal(d) {
				return false
			}
			result, err := indextemplate.Apply(before, decoded)
			return err == nil && result.Equal(after)
		},
		templatetest.Template(),
		templatetest.Template(),
	))

	properties.Property("diffs compose through an intermediate", prop.ForAll(
		func(template *indextemplate.IndexTemplate, seed uint64) bool {
			rng := templatetest.NewRand(seed)
			middle, _ := templatetest.Mutate(rng, template)
			last, _ := templatetest.Mutate(rng, middle)

			step, err := indextemplate.Apply(template, indextemplate.Compute(template, middle))
			if err != nil {
				return false
			}
			step, err = indextemplate.Apply(step, indextemplate.Compute(middle, last))
			return err == nil && step.Equal(last)
		},
		templatetest.Template(),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

func TestMutationsCoverEveryField(t *testing.T) {
	var fields []indextemplate.Field
	for _, mutation := range templatetest.AllMutations {
		fields = append(fields, mutation.Field())
	}
	if !slices.Equal(fields, indextemplate.AllFields()) {
		t.Errorf("mutation fields = %v, want %v", fields, indextemplate.AllFields())
	}
}

func TestConcurrentReaders(t *testing.T) {
	// Templates are immutable: concurrent encoding, hashing, and
	// diffing of one shared value must agree with a serial run.
	rng := templatetest.NewRand(7)
	shared := templatetest.RandomTemplate(rng)
	other := templatetest.RandomTemplate(rng)

	expectedBytes, err := shared.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	expectedHash := shared.Hash()

	type result struct {
		data    []byte
		hash    contenthash.Hash
		applied bool
	}
	const workers = 8
	results := make(chan result, workers)
	for range workers {
		go func() {
			data, _ := shared.MarshalBinary()
			applied, err := indextemplate.Apply(other, indextemplate.Compute(other, shared))
			results <- result{
				data:    data,
				hash:    shared.Hash(),
				applied: err == nil && applied.Equal(shared),
			}
		}()
	}
	for range workers {
		got := testutil.RequireReceive(t, results, 10*time.Second, "waiting for worker")
		if !bytes.Equal(got.data, expectedBytes) {
			t.Error("concurrent MarshalBinary produced different bytes")
		}
		if got.hash != expectedHash {
			t.Error("concurrent Hash produced a different digest")
		}
		if !got.applied {
			t.Error("concurrent Apply did not reproduce the shared template")
		}
	}
}
