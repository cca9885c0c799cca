package messages

import (
	"net/url"
	"strings"
)

// Query parameters understood by the dialog field datasources
const (
	ParamFragmentPath  = "fragmentPath"
	ParamComponentPath = "componentPath"
	ParamElementName   = "elementName"
)

// markupSelector is appended to a field resource path to request its rendered markup
const markupSelector = ".html"

// EndpointBuilder externalizes dialog field resource paths against an author instance.
type EndpointBuilder struct {
	base string
}

// NewEndpointBuilder creates a builder for the given author base URL
// (e.g. "http://localhost:4502"). An empty base yields host-relative URLs.
func NewEndpointBuilder(base string) *EndpointBuilder {
	return &EndpointBuilder{base: strings.TrimRight(base, "/")}
}

// FieldURL returns the markup URL of a field resource, parameterized with params.
func (b *EndpointBuilder) FieldURL(fieldPath string, params url.Values) string {
	if !strings.HasPrefix(fieldPath, "/") {
		fieldPath = "/" + fieldPath
	}
	u := b.base + fieldPath + markupSelector
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// OptionsURL is the URL of a dependent field rendered for fragmentPath.
func (b *EndpointBuilder) OptionsURL(fieldPath, fragmentPath string) string {
	return b.FieldURL(fieldPath, url.Values{ParamFragmentPath: {fragmentPath}})
}

// ControlsURL is the URL of the paragraph controls rendered for a component,
// fragment and (possibly empty) element name.
func (b *EndpointBuilder) ControlsURL(fieldPath, componentPath, fragmentPath, elementName string) string {
	return b.FieldURL(fieldPath, url.Values{
		ParamComponentPath: {componentPath},
		ParamFragmentPath:  {fragmentPath},
		ParamElementName:   {elementName},
	})
}

// Base returns the author base URL
func (b *EndpointBuilder) Base() string {
	return b.base
}
