package dialog

// OptionItem is a single choice of a dependent select field.
type OptionItem struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// OptionSet is the ordered list of choices a dependent field offers for a
// given fragment.
type OptionSet []OptionItem

// FieldOptions holds the option sets of both dependent fields as rendered for
// one fragment path.
type FieldOptions struct {
	Elements   OptionSet `json:"elements"`
	Variations OptionSet `json:"variations"`
}

// Equal reports whether a and b have the same length and the same value and
// label at every index. The comparison is exact: order and case matter.
func Equal(a, b OptionSet) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Value != b[i].Value || a[i].Label != b[i].Label {
			return false
		}
	}
	return true
}

// Equal reports whether s and other are pairwise identical.
func (s OptionSet) Equal(other OptionSet) bool {
	return Equal(s, other)
}

// Contains reports whether value is offered by the set.
func (s OptionSet) Contains(value string) bool {
	for _, item := range s {
		if item.Value == value {
			return true
		}
	}
	return false
}

// Values returns the option values in order
func (s OptionSet) Values() []string {
	values := make([]string, 0, len(s))
	for _, item := range s {
		values = append(values, item.Value)
	}
	return values
}

func (s OptionSet) clone() OptionSet {
	if s == nil {
		return nil
	}
	out := make(OptionSet, len(s))
	copy(out, s)
	return out
}
