package models

// FlattenedField is one addressable field of a schema with its dotted path
type FlattenedField struct {
	Name        string         `json:"name"`
	Path        string         `json:"path"`
	Type        NormalizedType `json:"type"`
	Required    bool           `json:"required"`
	Description string         `json:"description,omitempty"`
}

// FlattenedSchema groups flattened fields by category
type FlattenedSchema struct {
	Headers    []FlattenedField `json:"headers"`
	Parameters []FlattenedField `json:"parameters"`
	Body       []FlattenedField `json:"body"`
	Query      []FlattenedField `json:"query"`
}

// Path prefixes used for flattened addresses
const (
	HeadersPathPrefix    = "headers."
	ParametersPathPrefix = "parameters."
	BodyDataPathPrefix   = "body.data."
	QueryPathPrefix      = "query."
)

// Flatten converts the schema into addressable fields, keeping catalog order within each category
func (s ParameterSchema) Flatten() FlattenedSchema {
	out := FlattenedSchema{
		Headers:    flattenFlat(s.Headers, HeadersPathPrefix),
		Parameters: flattenFlat(s.PathParams, ParametersPathPrefix),
		Query:      flattenFlat(s.Query, QueryPathPrefix),
		Body:       []FlattenedField{},
	}

	for _, field := range s.Body.Data.fields {
		required := field.Required || containsString(s.Body.Required, field.Name)
		out.Body = appendNested(out.Body, field, BodyDataPathPrefix+field.Name, required)
	}

	return out
}

// All returns every flattened field, headers first
func (f FlattenedSchema) All() []FlattenedField {
	all := make([]FlattenedField, 0, len(f.Headers)+len(f.Parameters)+len(f.Body)+len(f.Query))
	all = append(all, f.Headers...)
	all = append(all, f.Parameters...)
	all = append(all, f.Body...)
	all = append(all, f.Query...)
	return all
}

// Lookup finds a flattened field by its dotted path
func (f FlattenedSchema) Lookup(path string) (FlattenedField, bool) {
	for _, field := range f.All() {
		if field.Path == path {
			return field, true
		}
	}
	return FlattenedField{}, false
}

func flattenFlat(set FieldSet, prefix string) []FlattenedField {
	out := make([]FlattenedField, 0, set.Len())
	for _, field := range set.fields {
		out = append(out, FlattenedField{
			Name:        field.Name,
			Path:        prefix + field.Name,
			Type:        field.Type,
			Required:    field.Required,
			Description: field.Description,
		})
	}
	return out
}

func appendNested(out []FlattenedField, field ParameterField, path string, required bool) []FlattenedField {
	out = append(out, FlattenedField{
		Name:        field.Name,
		Path:        path,
		Type:        field.Type,
		Required:    required,
		Description: field.Description,
	})

	if field.Properties == nil {
		return out
	}

	for _, child := range field.Properties.fields {
		childRequired := child.Required || field.requires(child.Name)
		out = appendNested(out, child, path+"."+child.Name, childRequired)
	}
	return out
}

// DuplicateNames returns every parameter name that appears in more than one category
// (headers, body data, query, path parameters), in order of first appearance.
func (s ParameterSchema) DuplicateNames() []string {
	categories := []FieldSet{s.Headers, s.Body.Data, s.Query, s.PathParams}

	seenIn := make(map[string]int)
	var order []string
	for _, set := range categories {
		local := make(map[string]bool)
		for _, name := range set.Names() {
			if local[name] {
				continue
			}
			local[name] = true
			if _, ok := seenIn[name]; !ok {
				order = append(order, name)
			}
			seenIn[name]++
		}
	}

	duplicates := []string{}
	for _, name := range order {
		if seenIn[name] > 1 {
			duplicates = append(duplicates, name)
		}
	}
	return duplicates
}
