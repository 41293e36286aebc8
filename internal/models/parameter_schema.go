package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ParameterField is one typed entry of a parameter schema
type ParameterField struct {
	Name        string         `json:"name,omitempty"`
	Type        NormalizedType `json:"type"`
	Required    bool           `json:"required"`
	Placeholder string         `json:"placeholder,omitempty"`
	Description string         `json:"description,omitempty"`

	// Properties holds child fields of an object-typed field
	Properties *FieldSet `json:"properties,omitempty"`
	// RequiredFields names children that are required (object-style "required": [...])
	RequiredFields []string `json:"required_fields,omitempty"`
	// Orphaned marks a URL parameter that no longer appears in the endpoint template
	Orphaned bool `json:"orphaned,omitempty"`
}

type rawParameterField struct {
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Required       json.RawMessage `json:"required"`
	RequiredFields []string        `json:"required_fields"`
	Placeholder    string          `json:"placeholder"`
	Description    string          `json:"description"`
	Properties     *FieldSet       `json:"properties"`
	Orphaned       bool            `json:"orphaned"`
}

// UnmarshalJSON normalizes the type on ingestion and accepts "required" either as a
// flag for the field itself or as a list of required child names.
func (f *ParameterField) UnmarshalJSON(data []byte) error {
	var raw rawParameterField
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	field := ParameterField{
		Name:           raw.Name,
		Type:           NormalizeType(raw.Type),
		Placeholder:    raw.Placeholder,
		Description:    raw.Description,
		Properties:     raw.Properties,
		RequiredFields: raw.RequiredFields,
		Orphaned:       raw.Orphaned,
	}
	if raw.Type == "" && raw.Properties != nil {
		field.Type = TypeObject
	}

	required := bytes.TrimSpace(raw.Required)
	switch {
	case len(required) == 0 || bytes.Equal(required, []byte("null")):
	case required[0] == '[':
		var names []string
		if err := json.Unmarshal(required, &names); err != nil {
			return fmt.Errorf("required list: %w", err)
		}
		field.RequiredFields = append(field.RequiredFields, names...)
	default:
		if err := json.Unmarshal(required, &field.Required); err != nil {
			return fmt.Errorf("required flag: %w", err)
		}
	}

	*f = field
	return nil
}

// requires reports whether the object-style required list names child
func (f ParameterField) requires(child string) bool {
	return containsString(f.RequiredFields, child)
}

// FieldSet is an ordered collection of fields keyed by name.
// Catalog order is preserved through JSON round trips.
type FieldSet struct {
	fields []ParameterField
}

// NewFieldSet builds a field set in the given order
func NewFieldSet(fields ...ParameterField) FieldSet {
	var s FieldSet
	for _, f := range fields {
		s.Set(f)
	}
	return s
}

// Len returns the number of fields
func (s FieldSet) Len() int {
	return len(s.fields)
}

// Fields returns a copy of the fields in catalog order
func (s FieldSet) Fields() []ParameterField {
	out := make([]ParameterField, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the field names in catalog order
func (s FieldSet) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Get returns the field with the given name
func (s FieldSet) Get(name string) (ParameterField, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return ParameterField{}, false
}

// Set replaces the field with the same name in place, or appends it
func (s *FieldSet) Set(field ParameterField) {
	for i, f := range s.fields {
		if f.Name == field.Name {
			s.fields[i] = field
			return
		}
	}
	s.fields = append(s.fields, field)
}

// MarshalJSON writes the set as an object in catalog order
func (s FieldSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts either an object keyed by field name or an array of named fields
func (s *FieldSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	set := FieldSet{}
	switch tok {
	case nil:
		*s = set
		return nil
	case json.Delim('{'):
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := keyTok.(string)
			var field ParameterField
			if err := dec.Decode(&field); err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			if field.Name == "" {
				field.Name = key
			}
			set.Set(field)
		}
	case json.Delim('['):
		for dec.More() {
			var field ParameterField
			if err := dec.Decode(&field); err != nil {
				return err
			}
			if field.Name == "" {
				return fmt.Errorf("field list entries need a name")
			}
			set.Set(field)
		}
	default:
		return fmt.Errorf("field set must be an object or an array")
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = set
	return nil
}

// BodyKind is the encoding of a request body
type BodyKind string

const (
	BodyKindJSON       BodyKind = "json"
	BodyKindForm       BodyKind = "form"
	BodyKindURLEncoded BodyKind = "urlencoded"
)

// BodySpec describes the body fields of a schema
type BodySpec struct {
	Kind     BodyKind `json:"bodyKind,omitempty"`
	Data     FieldSet `json:"data"`
	Required []string `json:"required,omitempty"`
}

// ParameterSchema is the shared shape of provider and canonical schemas
type ParameterSchema struct {
	Headers    FieldSet `json:"headers"`
	Body       BodySpec `json:"body"`
	Query      FieldSet `json:"query"`
	PathParams FieldSet `json:"pathParams"`
}

// Value implements driver.Valuer interface for GORM
func (s ParameterSchema) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner interface for GORM
func (s *ParameterSchema) Scan(value interface{}) error {
	if value == nil {
		*s = ParameterSchema{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into ParameterSchema", value)
	}

	return json.Unmarshal(bytes, s)
}

// JSONMap is a free-form JSON object column
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface for GORM
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner interface for GORM
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}

	return json.Unmarshal(bytes, m)
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", value)
	}
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
