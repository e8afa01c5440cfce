package models

// Field names a filterable attribute of a competition
type Field string

const (
	FieldCategory       Field = "category"
	FieldDifficulty     Field = "difficulty"
	FieldTimeCommitment Field = "timeCommitment"
	FieldPlatform       Field = "platform"
)

// FacetFields lists the fields that carry a multi-select facet in FilterSpec
var FacetFields = []Field{FieldCategory, FieldDifficulty, FieldTimeCommitment}

// FilterSpec is the user-editable filter state.
// An empty facet slice means "no constraint on this facet", never "reject everything".
type FilterSpec struct {
	Search         string   `json:"search"`
	Category       []string `json:"category"`
	Difficulty     []string `json:"difficulty"`
	TimeCommitment []string `json:"timeCommitment"`
	QuickFilters   []string `json:"quickFilters,omitempty"`
}

// DefaultFilterSpec returns the all-empty filter used at session start
func DefaultFilterSpec() FilterSpec {
	return FilterSpec{
		Category:       []string{},
		Difficulty:     []string{},
		TimeCommitment: []string{},
	}
}

// Reset restores the filter to its defaults
func (f *FilterSpec) Reset() {
	*f = DefaultFilterSpec()
}

// IsEmpty reports whether no constraint is active
func (f FilterSpec) IsEmpty() bool {
	return f.Search == "" &&
		len(f.Category) == 0 &&
		len(f.Difficulty) == 0 &&
		len(f.TimeCommitment) == 0 &&
		len(f.QuickFilters) == 0
}

// Values returns the accepted set for a facet field (nil for non-facet fields)
func (f FilterSpec) Values(field Field) []string {
	switch field {
	case FieldCategory:
		return f.Category
	case FieldDifficulty:
		return f.Difficulty
	case FieldTimeCommitment:
		return f.TimeCommitment
	}
	return nil
}

// Toggle adds value to the facet if absent, removes it otherwise.
// Unknown fields are ignored.
func (f *FilterSpec) Toggle(field Field, value string) {
	var target *[]string
	switch field {
	case FieldCategory:
		target = &f.Category
	case FieldDifficulty:
		target = &f.Difficulty
	case FieldTimeCommitment:
		target = &f.TimeCommitment
	default:
		return
	}

	next := make([]string, 0, len(*target)+1)
	found := false
	for _, v := range *target {
		if v == value {
			found = true
			continue
		}
		next = append(next, v)
	}
	if !found {
		next = append(next, value)
	}
	*target = next
}

// Clone returns a deep copy so callers can mutate without aliasing
func (f FilterSpec) Clone() FilterSpec {
	return FilterSpec{
		Search:         f.Search,
		Category:       append([]string(nil), f.Category...),
		Difficulty:     append([]string(nil), f.Difficulty...),
		TimeCommitment: append([]string(nil), f.TimeCommitment...),
		QuickFilters:   append([]string(nil), f.QuickFilters...),
	}
}
