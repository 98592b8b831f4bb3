// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/clustermeta/lib/indextemplate"
)

// styles renders through a renderer bound to the output writer, so
// color appears only when that writer is a color terminal.
type styles struct {
	heading  lipgloss.Style
	field    lipgloss.Style
	replaced lipgloss.Style
	faint    lipgloss.Style
	ok       lipgloss.Style
	failed   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	renderer := lipgloss.NewRenderer(w)
	return styles{
		heading:  renderer.NewStyle().Bold(true),
		field:    renderer.NewStyle().Width(16),
		replaced: renderer.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		faint:    renderer.NewStyle().Faint(true),
		ok:       renderer.NewStyle().Foreground(lipgloss.Color("2")),
		failed:   renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

// printSummary lists every field with whether the diff replaces it,
// and the old and new values of replaced fields.
func printSummary(w io.Writer, before, after *indextemplate.IndexTemplate, d *indextemplate.Diff) {
	s := newStyles(w)
	if d.IsEmpty() {
		fmt.Fprintln(w, s.heading.Render("no changes"))
		fmt.Fprintf(w, "%s\n", s.faint.Render(before.Hash().String()))
		return
	}

	fmt.Fprintln(w, s.heading.Render(fmt.Sprintf("%d of %d fields replaced", len(d.ChangedFields()), len(indextemplate.AllFields()))))
	for _, field := range indextemplate.AllFields() {
		name := s.field.Render(field.String())
		if !d.Replaced(field) {
			fmt.Fprintf(w, "  %s%s\n", name, s.faint.Render("unchanged"))
			continue
		}
		fmt.Fprintf(w, "  %s%s  %s -> %s\n", name, s.replaced.Render("replaced"),
			describeField(before, field), describeField(after, field))
	}
	fmt.Fprintf(w, "%s\n", s.faint.Render(fmt.Sprintf("%s -> %s", shortHash(before), shortHash(after))))
}

// describeField summarizes one field's value on a single line.
func describeField(t *indextemplate.IndexTemplate, field indextemplate.Field) string {
	switch field {
	case indextemplate.FieldIndexPatterns:
		return "[" + strings.Join(t.IndexPatterns(), ", ") + "]"
	case indextemplate.FieldTemplate:
		unit := t.Template()
		if unit == nil {
			return "absent"
		}
		var parts []string
		if unit.Settings != nil {
			parts = append(parts, fmt.Sprintf("%d settings", len(unit.Settings)))
		}
		if unit.Mappings != nil {
			parts = append(parts, fmt.Sprintf("mappings %s", unit.Mappings.Digest().String()[:12]))
		}
		if unit.Aliases != nil {
			parts = append(parts, fmt.Sprintf("%d aliases", len(unit.Aliases)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case indextemplate.FieldComposedOf:
		if t.ComposedOf() == nil {
			return "absent"
		}
		return "[" + strings.Join(t.ComposedOf(), ", ") + "]"
	case indextemplate.FieldPriority:
		return optionalNumber(t.Priority())
	case indextemplate.FieldVersion:
		return optionalNumber(t.Version())
	case indextemplate.FieldMetadata:
		if t.Metadata() == nil {
			return "absent"
		}
		return fmt.Sprintf("{%d keys}", len(t.Metadata()))
	default:
		return "?"
	}
}

func optionalNumber(value uint64, present bool) string {
	if !present {
		return "absent"
	}
	return strconv.FormatUint(value, 10)
}

func shortHash(t *indextemplate.IndexTemplate) string {
	return t.Hash().String()[:12]
}
