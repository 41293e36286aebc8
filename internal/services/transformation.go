package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"

	"github.com/spf13/cast"
)

// Transformation names a value conversion applied after a mapping resolves
type Transformation string

const (
	TransformString  Transformation = "string"
	TransformNumber  Transformation = "number"
	TransformInteger Transformation = "integer"
	TransformBoolean Transformation = "boolean"
	TransformArray   Transformation = "array"
	TransformJSON    Transformation = "json"
)

// KnownTransformation reports whether name is a supported transformation. Empty means none.
func KnownTransformation(name string) bool {
	switch Transformation(strings.ToLower(strings.TrimSpace(name))) {
	case "", TransformString, TransformNumber, TransformInteger, TransformBoolean, TransformArray, TransformJSON:
		return true
	}
	return false
}

// bucketPrefixes are stripped from a provider-side path to address it inside its bucket
var bucketPrefixes = map[models.FieldType][]string{
	models.FieldTypeBody:      {"body.data.", "body."},
	models.FieldTypeHeader:    {"headers.", "header."},
	models.FieldTypeQuery:     {"query."},
	models.FieldTypeParameter: {"parameters.", "pathParams.", "path."},
}

// BucketPath returns fromField relative to the bucket named by fieldType
func BucketPath(fieldType models.FieldType, fromField string) string {
	for _, prefix := range bucketPrefixes[fieldType] {
		if strings.HasPrefix(fromField, prefix) {
			return strings.TrimPrefix(fromField, prefix)
		}
	}
	return fromField
}

// transformationService implements TransformationService
type transformationService struct {
	logger *logger.Logger
}

// NewTransformationService creates a new transformation service
func NewTransformationService(logger *logger.Logger) TransformationService {
	return &transformationService{logger: logger}
}

// Transform maps a canonical inbound body onto the provider's four buckets
func (s *transformationService) Transform(
	ctx context.Context,
	inbound map[string]interface{},
	mappings []models.MappingRecord,
	defaults map[string]interface{},
) models.TransformedRequest {
	result := models.NewTransformedRequest()
	consumed := make(map[string]bool)
	mappedBody := make(map[string]bool)

	for _, mapping := range mappings {
		value, resolvedPath, fromInbound, ok := resolveCanonical(inbound, defaults, mapping.ToField)
		if !ok {
			s.logger.WithFields(map[string]interface{}{
				"from_field": mapping.FromField,
				"to_field":   mapping.ToField,
			}).Debug("Mapping unresolved, skipping")
			continue
		}

		// the result must not share objects with the inbound body or the catalog defaults
		value = copyValue(value)
		if fromInbound {
			consumed[firstSegment(resolvedPath)] = true
		}
		consumed[lastSegment(mapping.ToField)] = true

		if mapping.Transformation != "" {
			converted, err := ApplyTransformation(mapping.Transformation, value)
			if err != nil {
				s.logger.WithError(err).WithField("to_field", mapping.ToField).Debug("Transformation failed, keeping value")
			} else {
				value = converted
			}
		}

		target := BucketPath(mapping.FieldType, mapping.FromField)
		switch mapping.FieldType {
		case models.FieldTypeBody:
			SetNested(result.Body, target, value)
			mappedBody[firstSegment(target)] = true
		case models.FieldTypeHeader:
			result.Headers[target] = stringifyValue(value)
		case models.FieldTypeQuery:
			SetNested(result.Query, target, value)
		case models.FieldTypeParameter:
			SetNested(result.Parameters, target, value)
		default:
			s.logger.WithField("field_type", mapping.FieldType).Warn("Unknown mapping field type, skipping")
		}
	}

	for key, value := range inbound {
		if key == models.ControlFieldProvider || key == models.ControlFieldProviderFunction {
			continue
		}
		if consumed[key] || mappedBody[key] {
			continue
		}
		result.Body[key] = copyValue(value)
	}

	return result
}

// resolveCanonical tries the primary path and its fallbacks against the inbound body,
// then the same list against the canonical defaults.
func resolveCanonical(inbound, defaults map[string]interface{}, toField string) (interface{}, string, bool, bool) {
	paths := fallbackPaths(toField)
	for _, path := range paths {
		if value, ok := GetNested(inbound, path); ok {
			return value, path, true, true
		}
	}
	for _, path := range paths {
		if value, ok := GetNested(defaults, path); ok {
			return value, path, false, true
		}
	}
	return nil, "", false, false
}

// ApplyTransformation converts value according to a named transformation.
// Unknown names return the value unchanged.
func ApplyTransformation(name string, value interface{}) (interface{}, error) {
	switch Transformation(strings.ToLower(strings.TrimSpace(name))) {
	case TransformString:
		return stringifyValue(value), nil
	case TransformNumber:
		return cast.ToFloat64E(value)
	case TransformInteger:
		if s, ok := value.(string); ok {
			f, err := cast.ToFloat64E(strings.TrimSpace(s))
			if err != nil {
				return nil, err
			}
			return int64(f), nil
		}
		return cast.ToInt64E(value)
	case TransformBoolean:
		return cast.ToBoolE(value)
	case TransformArray:
		if arr, ok := value.([]interface{}); ok {
			return arr, nil
		}
		return []interface{}{value}, nil
	case TransformJSON:
		if s, ok := value.(string); ok {
			return s, nil
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return string(encoded), nil
	}
	return value, nil
}

// stringifyValue renders a value for a header: strings verbatim, objects and arrays as JSON
func stringifyValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]interface{}, []interface{}:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	default:
		return cast.ToString(v)
	}
}
