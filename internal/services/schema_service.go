package services

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
)

// URLParameters are the placeholders and query keys found in an endpoint URL template
type URLParameters struct {
	Path  []string `json:"path"`
	Query []string `json:"query"`
}

// URLParameterDiff is the difference between two URLParameters snapshots
type URLParameterDiff struct {
	AddedPath    []string `json:"added_path"`
	RemovedPath  []string `json:"removed_path"`
	AddedQuery   []string `json:"added_query"`
	RemovedQuery []string `json:"removed_query"`
}

// HasChanges reports whether anything was added or removed
func (d URLParameterDiff) HasChanges() bool {
	return len(d.AddedPath)+len(d.RemovedPath)+len(d.AddedQuery)+len(d.RemovedQuery) > 0
}

// Removed returns every removed name, path parameters first
func (d URLParameterDiff) Removed() []string {
	return append(append([]string{}, d.RemovedPath...), d.RemovedQuery...)
}

// CompileReport is the outcome of compiling a mapping set
type CompileReport struct {
	Problems []string `json:"problems"`
	Warnings []string `json:"warnings"`
}

// Valid reports whether the mapping set compiled without problems
func (r CompileReport) Valid() bool {
	return len(r.Problems) == 0
}

var (
	bracePlaceholder = regexp.MustCompile(`\{([A-Za-z0-9_\-]+)\}`)
	colonPlaceholder = regexp.MustCompile(`^:([A-Za-z0-9_\-]+)$`)
)

// IsValidMapping reports whether a value of sourceType may be mapped onto targetType
func IsValidMapping(sourceType, targetType models.NormalizedType) bool {
	return sourceType == models.TypeAny || targetType == models.TypeAny || sourceType == targetType
}

// schemaService implements SchemaService
type schemaService struct {
	logger *logger.Logger
}

// NewSchemaService creates a new schema service
func NewSchemaService(logger *logger.Logger) SchemaService {
	return &schemaService{logger: logger}
}

// ValidateSchema rejects a schema that uses one name in more than one category
func (s *schemaService) ValidateSchema(ctx context.Context, schema models.ParameterSchema) error {
	duplicates := schema.DuplicateNames()
	if len(duplicates) > 0 {
		s.logger.WithField("duplicates", duplicates).Debug("Schema has duplicate parameter names")
		return &DuplicateNameError{Names: duplicates}
	}
	return nil
}

// CheckMapping rejects a mapping between incompatible types
func (s *schemaService) CheckMapping(ctx context.Context, sourceType, targetType models.NormalizedType) error {
	if !IsValidMapping(sourceType, targetType) {
		return &TypeMismatchError{Source: sourceType, Target: targetType}
	}
	return nil
}

// CompileMappingSet validates every record of a mapping set against both schemas.
// All problems are collected before failing.
func (s *schemaService) CompileMappingSet(
	ctx context.Context,
	providerSchema, canonicalSchema models.ParameterSchema,
	records []models.MappingRecord,
) (CompileReport, error) {
	report := CompileReport{Problems: []string{}, Warnings: []string{}}

	if dup := providerSchema.DuplicateNames(); len(dup) > 0 {
		report.Problems = append(report.Problems, fmt.Sprintf("provider schema: duplicate parameter names: %s", strings.Join(dup, ", ")))
	}
	if dup := canonicalSchema.DuplicateNames(); len(dup) > 0 {
		report.Problems = append(report.Problems, fmt.Sprintf("canonical schema: duplicate parameter names: %s", strings.Join(dup, ", ")))
	}

	providerFlat := providerSchema.Flatten()
	canonicalFlat := canonicalSchema.Flatten()
	seenFrom := make(map[string]int)

	for i, record := range records {
		label := fmt.Sprintf("record %d (%s -> %s)", i+1, record.ToField, record.FromField)

		if !record.FieldType.Valid() {
			report.Problems = append(report.Problems, fmt.Sprintf("%s: unknown fieldType %q", label, record.FieldType))
		}
		if !KnownTransformation(record.Transformation) {
			report.Problems = append(report.Problems, fmt.Sprintf("%s: unknown transformation %q", label, record.Transformation))
		}

		if first, ok := seenFrom[record.FromField]; ok {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: fromField also written by record %d, the later record wins", label, first))
		} else {
			seenFrom[record.FromField] = i + 1
		}

		target, targetOK := lookupProviderField(providerFlat, record.FieldType, record.FromField)
		if !targetOK {
			report.Problems = append(report.Problems, fmt.Sprintf("%s: fromField %q is not in the provider schema", label, record.FromField))
		} else if record.FieldType.Valid() && !strings.HasPrefix(target.Path, categoryPrefix(record.FieldType)) {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: fromField %q is declared as %s but written to the %s bucket", label, record.FromField, categoryOf(target.Path), record.FieldType))
		}

		source, sourceOK := lookupCanonicalField(canonicalFlat, record.ToField)
		if !sourceOK {
			report.Problems = append(report.Problems, fmt.Sprintf("%s: toField %q is not in the canonical schema", label, record.ToField))
		}

		if targetOK && sourceOK {
			sourceType := transformedType(record.Transformation, source.Type)
			if err := s.CheckMapping(ctx, sourceType, target.Type); err != nil {
				report.Problems = append(report.Problems, fmt.Sprintf("%s: %v", label, err))
			}
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"records":  len(records),
		"problems": len(report.Problems),
		"warnings": len(report.Warnings),
	}).Debug("Mapping set compiled")

	if !report.Valid() {
		return report, &MappingValidationError{Problems: report.Problems}
	}
	return report, nil
}

// DetectURLParameters finds path placeholders (":name" segments and "{name}") and
// query keys in a URL template. Malformed templates are rejected.
func (s *schemaService) DetectURLParameters(ctx context.Context, template string) (URLParameters, error) {
	return DetectURLParameters(template)
}

// ApplyURLTemplate re-runs detection for a changed template and reconciles the schema:
// added path parameters become required strings, added query keys optional strings,
// and stored parameters missing from the template are flagged orphaned, never deleted.
// When previous is nil the schema's own path and query fields are the prior snapshot.
func (s *schemaService) ApplyURLTemplate(
	ctx context.Context,
	schema models.ParameterSchema,
	previous *URLParameters,
	template string,
) (models.ParameterSchema, URLParameterDiff, error) {
	detected, err := DetectURLParameters(template)
	if err != nil {
		return schema, URLParameterDiff{}, err
	}

	prior := URLParameters{Path: schema.PathParams.Names(), Query: schema.Query.Names()}
	if previous != nil {
		prior = *previous
	}
	diff := DiffURLParameters(prior, detected)

	schema.PathParams = reconcileURLFields(schema.PathParams, detected.Path, diff.RemovedPath, true)
	schema.Query = reconcileURLFields(schema.Query, detected.Query, diff.RemovedQuery, false)

	if diff.HasChanges() {
		s.logger.WithFields(map[string]interface{}{
			"added_path":    diff.AddedPath,
			"removed_path":  diff.RemovedPath,
			"added_query":   diff.AddedQuery,
			"removed_query": diff.RemovedQuery,
		}).Info("URL template parameters changed")
	}
	return schema, diff, nil
}

// DetectURLParameters is the stateless detector behind SchemaService.DetectURLParameters
func DetectURLParameters(template string) (URLParameters, error) {
	params := URLParameters{Path: []string{}, Query: []string{}}

	trimmed := strings.TrimSpace(template)
	if trimmed == "" {
		return params, NewBadRequestError("URL template is empty", nil)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return params, NewBadRequestError("URL template is malformed", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return params, NewBadRequestError("URL template must be absolute", nil)
	}

	seen := make(map[string]bool)
	for _, segment := range strings.Split(u.Path, "/") {
		if m := colonPlaceholder.FindStringSubmatch(segment); m != nil {
			params.Path = appendUnique(params.Path, seen, m[1])
			continue
		}
		for _, m := range bracePlaceholder.FindAllStringSubmatch(segment, -1) {
			params.Path = appendUnique(params.Path, seen, m[1])
		}
	}

	seenQuery := make(map[string]bool)
	for _, pair := range strings.Split(u.RawQuery, "&") {
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		if key == "" {
			continue
		}
		params.Query = appendUnique(params.Query, seenQuery, key)
	}

	return params, nil
}

// DiffURLParameters compares two snapshots. Order follows the snapshot each name came from.
func DiffURLParameters(previous, current URLParameters) URLParameterDiff {
	return URLParameterDiff{
		AddedPath:    difference(current.Path, previous.Path),
		RemovedPath:  difference(previous.Path, current.Path),
		AddedQuery:   difference(current.Query, previous.Query),
		RemovedQuery: difference(previous.Query, current.Query),
	}
}

func reconcileURLFields(set models.FieldSet, present, removed []string, required bool) models.FieldSet {
	for _, name := range present {
		field, ok := set.Get(name)
		if !ok {
			field = models.ParameterField{Name: name, Type: models.TypeString, Required: required}
		}
		field.Orphaned = false
		set.Set(field)
	}
	for _, name := range removed {
		if field, ok := set.Get(name); ok {
			field.Orphaned = true
			set.Set(field)
		}
	}
	return set
}

func lookupProviderField(flat models.FlattenedSchema, fieldType models.FieldType, path string) (models.FlattenedField, bool) {
	if field, ok := flat.Lookup(path); ok {
		return field, true
	}
	if fieldType.Valid() {
		if field, ok := flat.Lookup(categoryPrefix(fieldType) + BucketPath(fieldType, path)); ok {
			return field, true
		}
	}
	return models.FlattenedField{}, false
}

func lookupCanonicalField(flat models.FlattenedSchema, path string) (models.FlattenedField, bool) {
	for _, candidate := range fallbackPaths(path) {
		if field, ok := flat.Lookup(candidate); ok {
			return field, true
		}
		for _, prefix := range []string{models.BodyDataPathPrefix, models.HeadersPathPrefix, models.QueryPathPrefix, models.ParametersPathPrefix} {
			if field, ok := flat.Lookup(prefix + candidate); ok {
				return field, true
			}
		}
	}
	return models.FlattenedField{}, false
}

func categoryPrefix(fieldType models.FieldType) string {
	switch fieldType {
	case models.FieldTypeHeader:
		return models.HeadersPathPrefix
	case models.FieldTypeQuery:
		return models.QueryPathPrefix
	case models.FieldTypeParameter:
		return models.ParametersPathPrefix
	default:
		return models.BodyDataPathPrefix
	}
}

func categoryOf(path string) string {
	switch {
	case strings.HasPrefix(path, models.HeadersPathPrefix):
		return string(models.FieldTypeHeader)
	case strings.HasPrefix(path, models.QueryPathPrefix):
		return string(models.FieldTypeQuery)
	case strings.HasPrefix(path, models.ParametersPathPrefix):
		return string(models.FieldTypeParameter)
	default:
		return string(models.FieldTypeBody)
	}
}

// transformedType is the type a value has after the named transformation
func transformedType(transformation string, original models.NormalizedType) models.NormalizedType {
	switch Transformation(strings.ToLower(strings.TrimSpace(transformation))) {
	case TransformString, TransformJSON:
		return models.TypeString
	case TransformNumber, TransformInteger:
		return models.TypeNumber
	case TransformBoolean:
		return models.TypeBoolean
	case TransformArray:
		return models.TypeArray
	}
	return original
}

func appendUnique(list []string, seen map[string]bool, name string) []string {
	if seen[name] {
		return list
	}
	seen[name] = true
	return append(list, name)
}

// difference returns the names of a that are not in b, in a's order
func difference(a, b []string) []string {
	exclude := make(map[string]bool, len(b))
	for _, name := range b {
		exclude[name] = true
	}
	out := []string{}
	for _, name := range a {
		if !exclude[name] {
			out = append(out, name)
		}
	}
	return out
}
