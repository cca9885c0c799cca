package dialog

import (
	"errors"
	"strings"
	"testing"

	"github.com/zenibako/fragsync/templates"
)

func renderTestDialog(t *testing.T, d templates.Dialog) string {
	t.Helper()
	markup, err := templates.DialogString(d)
	if err != nil {
		t.Fatalf("Failed to render dialog: %v", err)
	}
	return markup
}

func TestParseDialog(t *testing.T) {
	markup := renderTestDialog(t, templates.Dialog{
		ComponentPath: testComponent,
		FragmentPath:  fragmentA,
		Elements: templates.ElementNamesField{
			FieldPath: DefaultMockPaths.ElementNames,
			Options:   toItems(elementsA),
			Entries:   []string{"title", ""},
		},
		Variation: templates.VariationField{
			FieldPath: DefaultMockPaths.VariationName,
			Options:   toItems(variants),
			Value:     "summer",
		},
		Controls: templates.ParagraphControls{
			FieldPath: DefaultMockPaths.ParagraphControls,
			Rendered:  true,
			Scopes:    templates.DefaultScopes,
			Scope:     ScopeRange,
			Range:     "1;2",
			Headings:  true,
		},
	})

	state, err := ParseDialog(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("ParseDialog failed: %v", err)
	}

	if state.ComponentPath != testComponent {
		t.Errorf("ComponentPath = %q", state.ComponentPath)
	}
	if state.Paths != DefaultMockPaths {
		t.Errorf("Paths = %+v, want %+v", state.Paths, DefaultMockPaths)
	}
	if state.FragmentPath != fragmentA {
		t.Errorf("FragmentPath = %q", state.FragmentPath)
	}
	if len(state.Elements) != 2 || state.Elements[0] != "title" || state.Elements[1] != "" {
		t.Errorf("Elements = %q, want [title \"\"]", state.Elements)
	}
	if !state.ElementOptions.Equal(elementsA) {
		t.Errorf("ElementOptions = %v", state.ElementOptions)
	}
	if state.Variation != "summer" {
		t.Errorf("Variation = %q", state.Variation)
	}
	if !state.VariationOptions.Equal(variants) {
		t.Errorf("VariationOptions = %v", state.VariationOptions)
	}

	c := state.Controls
	if !c.Rendered || c.Scope != ScopeRange || c.Range != "1;2" || !c.Headings {
		t.Errorf("Controls = %+v", c)
	}
	if len(c.Scopes) != 2 || c.Scopes[1].Label != "Display paragraph range" {
		t.Errorf("Scopes = %v", c.Scopes)
	}
	if !c.RangeEnabled || !c.HeadingsEnabled {
		t.Error("Range fields should be enabled for the range scope")
	}
}

func TestParseDialogWithoutFragment(t *testing.T) {
	markup := renderTestDialog(t, templates.Dialog{
		ComponentPath: testComponent,
		Elements:      templates.ElementNamesField{FieldPath: DefaultMockPaths.ElementNames, AddDisabled: true},
		Variation:     templates.VariationField{FieldPath: DefaultMockPaths.VariationName, Disabled: true},
		Controls:      templates.ParagraphControls{FieldPath: DefaultMockPaths.ParagraphControls},
	})

	state, err := ParseDialog(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("ParseDialog failed: %v", err)
	}
	if state.FragmentPath != "" || state.Variation != "" {
		t.Errorf("Unexpected state: %+v", state)
	}
	if len(state.Elements) != 0 || len(state.ElementOptions) != 0 || len(state.VariationOptions) != 0 {
		t.Errorf("Expected empty fields: %+v", state)
	}
	if state.Controls.Rendered {
		t.Error("Controls should not be rendered")
	}
}

func TestParseDialogMissingField(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{"no dialog", `<div class="other"></div>`},
		{"no variation", `<div class="cmp-contentfragment__edit-dialog"><coral-multifield data-granite-coral-multifield-name="./elementNames"></coral-multifield><div class="cmp-contentfragment__edit-dialog-paragraph-controls"></div></div>`},
		{"no controls", `<div class="cmp-contentfragment__edit-dialog"><coral-multifield data-granite-coral-multifield-name="./elementNames"></coral-multifield><coral-select name="./variationName"></coral-select></div>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDialog(strings.NewReader(tt.markup))
			if !errors.Is(err, errFieldMissing) {
				t.Errorf("Expected errFieldMissing, got %v", err)
			}
		})
	}
}

func TestParseOptionMarkup(t *testing.T) {
	elements := `<coral-multifield data-granite-coral-multifield-name="./elementNames">
		<template coral-multifield-template><coral-select name="./elementNames">
			<coral-select-item value="title">Title</coral-select-item>
			<coral-select-item value="body">Body</coral-select-item>
		</coral-select></template>
	</coral-multifield>`

	options, err := ParseElementOptions(strings.NewReader(elements))
	if err != nil {
		t.Fatalf("ParseElementOptions failed: %v", err)
	}
	if !options.Equal(elementsA) {
		t.Errorf("Element options = %v, want %v", options, elementsA)
	}

	padded := strings.Replace(elements, ">Title<", ">Title <", 1)
	options, err = ParseElementOptions(strings.NewReader(padded))
	if err != nil {
		t.Fatalf("ParseElementOptions failed: %v", err)
	}
	if options[0].Label != "Title " {
		t.Errorf("Label = %q, want the text content as rendered", options[0].Label)
	}
	if options.Equal(elementsA) {
		t.Error("Labels differing in whitespace must not compare equal")
	}

	variation := `<coral-select name="./variationName"><coral-select-item value="master">Master</coral-select-item><coral-select-item value="summer">Summer</coral-select-item></coral-select>`
	options, err = ParseVariationOptions(strings.NewReader(variation))
	if err != nil {
		t.Fatalf("ParseVariationOptions failed: %v", err)
	}
	if !options.Equal(variants) {
		t.Errorf("Variation options = %v, want %v", options, variants)
	}

	if _, err := ParseVariationOptions(strings.NewReader(elements)); !errors.Is(err, errFieldMissing) {
		t.Errorf("Expected errFieldMissing, got %v", err)
	}
}

func TestParseControls(t *testing.T) {
	t.Run("empty response", func(t *testing.T) {
		c, err := ParseControls(strings.NewReader(""))
		if err != nil {
			t.Fatalf("ParseControls failed: %v", err)
		}
		if c.Rendered {
			t.Error("Empty markup should not be rendered")
		}
	})

	t.Run("bare fields", func(t *testing.T) {
		markup := `<div><coral-radio name="./paragraphScope" value="all" checked>All</coral-radio><coral-radio name="./paragraphScope" value="range">Range</coral-radio><input name="./paragraphRange" value="3"></div>`
		c, err := ParseControls(strings.NewReader(markup))
		if err != nil {
			t.Fatalf("ParseControls failed: %v", err)
		}
		if !c.Rendered || c.Scope != "all" || c.Range != "3" || c.Headings {
			t.Errorf("Controls = %+v", c)
		}
		if c.RangeEnabled || c.HeadingsEnabled {
			t.Error("Range fields should be disabled for the all scope")
		}
	})

	t.Run("empty container", func(t *testing.T) {
		var b strings.Builder
		if err := templates.RenderControls(&b, templates.ParagraphControls{FieldPath: "/controls"}); err != nil {
			t.Fatalf("RenderControls failed: %v", err)
		}
		c, err := ParseControls(strings.NewReader(b.String()))
		if err != nil {
			t.Fatalf("ParseControls failed: %v", err)
		}
		if c.Rendered {
			t.Errorf("Container without fields should not be rendered: %+v", c)
		}
	})
}

func TestValidElementNames(t *testing.T) {
	names := ValidElementNames([]string{"", "title", "", "body"})
	if len(names) != 2 || names[0] != "title" || names[1] != "body" {
		t.Errorf("ValidElementNames() = %v", names)
	}
}
