package templates

import (
	"bytes"
	"html/template"
	"io"
)

// Item represents a select or radio option in rendered dialog markup
type Item struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// ElementNamesField represents the element names multifield
type ElementNamesField struct {
	FieldPath   string   `json:"field_path"`
	Options     []Item   `json:"options"`           // Options offered by the multifield template
	Entries     []string `json:"entries,omitempty"` // Configured entries; "" renders an entry without a select
	AddDisabled bool     `json:"add_disabled,omitempty"`
}

// VariationField represents the variation name select
type VariationField struct {
	FieldPath string `json:"field_path"`
	Options   []Item `json:"options"`
	Value     string `json:"value,omitempty"`
	Disabled  bool   `json:"disabled,omitempty"`
}

// ParagraphControls represents the paragraph controls field set.
// When Rendered is false the container is emitted without children.
type ParagraphControls struct {
	FieldPath string `json:"field_path"`
	Rendered  bool   `json:"rendered"`
	Scopes    []Item `json:"scopes,omitempty"`
	Scope     string `json:"scope,omitempty"`
	Range     string `json:"range,omitempty"`
	Headings  bool   `json:"headings,omitempty"`
}

// Dialog represents the content fragment edit dialog root
type Dialog struct {
	ComponentPath string            `json:"component_path"`
	FragmentPath  string            `json:"fragment_path,omitempty"`
	Elements      ElementNamesField `json:"elements"`
	Variation     VariationField    `json:"variation"`
	Controls      ParagraphControls `json:"controls"`
}

// DefaultScopes are the paragraph scope choices offered by the component
var DefaultScopes = []Item{
	{Value: "all", Label: "Display all paragraphs"},
	{Value: "range", Label: "Display paragraph range"},
}

const fieldTemplates = `
{{define "elementNames"}}<coral-multifield class="coral-Form-field" data-granite-coral-multifield-name="./elementNames" data-field-path="{{.FieldPath}}">{{range .Entries}}<coral-multifield-item><coral-multifield-item-content>{{if .}}<coral-select name="./elementNames" value="{{.}}"></coral-select>{{end}}</coral-multifield-item-content></coral-multifield-item>{{end}}<button type="button" is="coral-button" coral-multifield-add{{if .AddDisabled}} disabled{{end}}>Add</button><template coral-multifield-template><coral-select name="./elementNames">{{range .Options}}<coral-select-item value="{{.Value}}">{{.Label}}</coral-select-item>{{end}}</coral-select></template></coral-multifield>{{end}}
{{define "variation"}}<coral-select class="coral-Form-field" name="./variationName" data-field-path="{{.FieldPath}}"{{if .Disabled}} disabled{{end}}>{{$value := .Value}}{{range .Options}}<coral-select-item value="{{.Value}}"{{if eq .Value $value}} selected{{end}}>{{.Label}}</coral-select-item>{{end}}</coral-select>{{end}}
{{define "controls"}}<div class="cmp-contentfragment__edit-dialog-paragraph-controls" data-field-path="{{.FieldPath}}">{{if .Rendered}}{{$scope := .Scope}}{{range .Scopes}}<coral-radio name="./paragraphScope" value="{{.Value}}"{{if eq .Value $scope}} checked{{end}}>{{.Label}}</coral-radio>{{end}}<input is="coral-textfield" name="./paragraphRange" value="{{.Range}}"><coral-checkbox name="./paragraphHeadings" value="true"{{if .Headings}} checked{{end}}>Translate headings</coral-checkbox>{{end}}</div>{{end}}
{{define "dialog"}}<form class="cq-dialog"><div class="cmp-contentfragment__edit-dialog" data-component-path="{{.ComponentPath}}"><foundation-autocomplete class="coral-Form-field" name="./fragmentPath" value="{{.FragmentPath}}"></foundation-autocomplete>{{template "elementNames" .Elements}}{{template "variation" .Variation}}{{template "controls" .Controls}}</div></form>{{end}}
`

var tmpl = template.Must(template.New("fields").Parse(fieldTemplates))

// RenderElementNames writes the element names multifield markup
func RenderElementNames(w io.Writer, f ElementNamesField) error {
	return tmpl.ExecuteTemplate(w, "elementNames", f)
}

// RenderVariation writes the variation select markup
func RenderVariation(w io.Writer, f VariationField) error {
	return tmpl.ExecuteTemplate(w, "variation", f)
}

// RenderControls writes the paragraph controls markup
func RenderControls(w io.Writer, c ParagraphControls) error {
	return tmpl.ExecuteTemplate(w, "controls", c)
}

// RenderDialog writes the complete edit dialog markup
func RenderDialog(w io.Writer, d Dialog) error {
	return tmpl.ExecuteTemplate(w, "dialog", d)
}

// DialogString renders the dialog to a string, the form the host sends on ready
func DialogString(d Dialog) (string, error) {
	var buf bytes.Buffer
	if err := RenderDialog(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
