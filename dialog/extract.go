package dialog

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Markup selectors of the content fragment edit dialog
const (
	SelectorEditDialog        = ".cmp-contentfragment__edit-dialog"
	SelectorFragmentPath      = "[name='./fragmentPath']"
	SelectorElementNames      = "[data-granite-coral-multifield-name='./elementNames']"
	SelectorVariationName     = "[name='./variationName']"
	SelectorParagraphControls = ".cmp-contentfragment__edit-dialog-paragraph-controls"
	SelectorParagraphScope    = "[name='./paragraphScope']"
	SelectorParagraphRange    = "[name='./paragraphRange']"
	SelectorParagraphHeadings = "[name='./paragraphHeadings']"

	selectorSelectItem = "coral-select-item"
)

var errFieldMissing = errors.New("field not found in markup")

// FieldPaths are the resource paths of the dialog fields; their markup is
// requested from these paths.
type FieldPaths struct {
	ElementNames      string `json:"element_names"`
	VariationName     string `json:"variation_name"`
	ParagraphControls string `json:"paragraph_controls"`
}

// Init is the dialog state read when the dialog becomes ready
type Init struct {
	ComponentPath    string
	Paths            FieldPaths
	FragmentPath     string
	Elements         []string
	ElementOptions   OptionSet
	Variation        string
	VariationOptions OptionSet
	Controls         ParagraphControls
}

// ParseDialog reads the initial state from the edit dialog markup.
func ParseDialog(r io.Reader) (Init, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Init{}, fmt.Errorf("failed to parse dialog markup: %w", err)
	}

	root := doc.Find(SelectorEditDialog).First()
	if root.Length() == 0 {
		return Init{}, fmt.Errorf("%s: %w", SelectorEditDialog, errFieldMissing)
	}

	elements := root.Find(SelectorElementNames).First()
	if elements.Length() == 0 {
		return Init{}, fmt.Errorf("%s: %w", SelectorElementNames, errFieldMissing)
	}
	variation := root.Find(SelectorVariationName).First()
	if variation.Length() == 0 {
		return Init{}, fmt.Errorf("%s: %w", SelectorVariationName, errFieldMissing)
	}
	controls := root.Find(SelectorParagraphControls).First()
	if controls.Length() == 0 {
		return Init{}, fmt.Errorf("%s: %w", SelectorParagraphControls, errFieldMissing)
	}

	state := Init{
		ComponentPath: root.AttrOr("data-component-path", ""),
		Paths: FieldPaths{
			ElementNames:      elements.AttrOr("data-field-path", ""),
			VariationName:     variation.AttrOr("data-field-path", ""),
			ParagraphControls: controls.AttrOr("data-field-path", ""),
		},
		FragmentPath:     root.Find(SelectorFragmentPath).First().AttrOr("value", ""),
		Elements:         elementEntries(elements),
		ElementOptions:   elementOptions(elements),
		Variation:        selectValue(variation),
		VariationOptions: selectItems(variation),
		Controls:         controlsFrom(controls),
	}
	return state, nil
}

// ParseElementOptions extracts the options of the element names field from
// its rendered markup.
func ParseElementOptions(r io.Reader) (OptionSet, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse element names markup: %w", err)
	}
	field := doc.Find(SelectorElementNames).First()
	if field.Length() == 0 {
		return nil, fmt.Errorf("%s: %w", SelectorElementNames, errFieldMissing)
	}
	return elementOptions(field), nil
}

// ParseVariationOptions extracts the options of the variation field from its
// rendered markup.
func ParseVariationOptions(r io.Reader) (OptionSet, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse variation markup: %w", err)
	}
	field := doc.Find(SelectorVariationName).First()
	if field.Length() == 0 {
		return nil, fmt.Errorf("%s: %w", SelectorVariationName, errFieldMissing)
	}
	return selectItems(field), nil
}

// ParseControls extracts the paragraph control group from its rendered
// markup. Empty markup yields a group that is not rendered.
func ParseControls(r io.Reader) (ParagraphControls, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return ParagraphControls{}, fmt.Errorf("failed to parse paragraph controls markup: %w", err)
	}
	container := doc.Find(SelectorParagraphControls).First()
	if container.Length() == 0 {
		container = doc.Find("body").Children().First()
	}
	if container.Length() == 0 {
		return ParagraphControls{}, nil
	}
	return controlsFrom(container), nil
}

// elementOptions reads the options of the multifield template, i.e. the
// choices offered to every new entry.
func elementOptions(field *goquery.Selection) OptionSet {
	return selectItems(field.Find("template").First())
}

// elementEntries returns one value per multifield item; items without a
// select yield an empty placeholder.
func elementEntries(field *goquery.Selection) []string {
	entries := []string{}
	field.Find("coral-multifield-item").Each(func(_ int, item *goquery.Selection) {
		sel := item.Find("coral-select").First()
		if sel.Length() == 0 {
			entries = append(entries, "")
			return
		}
		entries = append(entries, selectValue(sel))
	})
	return entries
}

func selectItems(sel *goquery.Selection) OptionSet {
	items := OptionSet{}
	sel.Find(selectorSelectItem).Each(func(_ int, item *goquery.Selection) {
		items = append(items, OptionItem{
			Value: item.AttrOr("value", ""),
			Label: item.Text(),
		})
	})
	return items
}

// selectValue prefers the select's value attribute and falls back to the
// selected item.
func selectValue(sel *goquery.Selection) string {
	if value, ok := sel.Attr("value"); ok {
		return value
	}
	selected := sel.Find(selectorSelectItem + "[selected]").First()
	return selected.AttrOr("value", "")
}

func controlsFrom(container *goquery.Selection) ParagraphControls {
	controls := ParagraphControls{
		Rendered: container.Children().Length() > 0,
	}
	if !controls.Rendered {
		return controls
	}

	container.Find(SelectorParagraphScope).Each(func(_ int, radio *goquery.Selection) {
		value := radio.AttrOr("value", "")
		controls.Scopes = append(controls.Scopes, OptionItem{
			Value: value,
			Label: strings.TrimSpace(radio.Text()),
		})
		if _, checked := radio.Attr("checked"); checked {
			controls.Scope = value
		}
	})
	controls.Range = container.Find(SelectorParagraphRange).First().AttrOr("value", "")
	_, controls.Headings = container.Find(SelectorParagraphHeadings).First().Attr("checked")
	controls.recomputeEnablement()
	return controls
}
