package dialog

// DefaultVariation is the variation every fragment has. Selecting it carries
// no configuration that a fragment change could invalidate.
const DefaultVariation = "master"

// FieldState is the configuration currently held by the dependent fields,
// together with the option sets the fields were rendered with.
type FieldState struct {
	Elements         []string  // configured element entries, placeholders included
	ElementOptions   OptionSet // options backing the element names field
	Variation        string    // selected variation
	VariationOptions OptionSet // options backing the variation field
}

// CanKeep decides whether the current configuration survives a fragment
// change. incoming is nil when the fragment path was cleared.
//
// Configuration is compatible only when the option universe it was chosen
// from is unchanged. An empty or default-only configuration is always
// compatible.
func CanKeep(current FieldState, incoming *FieldOptions) bool {
	if len(current.Elements) > 0 {
		if incoming == nil {
			return false
		}
		if !Equal(current.ElementOptions, incoming.Elements) {
			return false
		}
	}

	if hasVariation(current.Variation) {
		if incoming == nil {
			return false
		}
		if !Equal(current.VariationOptions, incoming.Variations) {
			return false
		}
	}

	return true
}

func hasVariation(variation string) bool {
	return variation != "" && variation != DefaultVariation
}
