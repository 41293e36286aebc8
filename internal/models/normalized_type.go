package models

import "strings"

// NormalizedType is the closed set of parameter types the engine understands
type NormalizedType string

const (
	TypeString  NormalizedType = "string"
	TypeNumber  NormalizedType = "number"
	TypeBoolean NormalizedType = "boolean"
	TypeArray   NormalizedType = "array"
	TypeObject  NormalizedType = "object"
	TypeAny     NormalizedType = "any"
)

// NormalizedTypes lists every canonical type
var NormalizedTypes = []NormalizedType{TypeString, TypeNumber, TypeBoolean, TypeArray, TypeObject, TypeAny}

var rawTypeTable = map[string]NormalizedType{
	"string":    TypeString,
	"text":      TypeString,
	"email":     TypeString,
	"url":       TypeString,
	"date":      TypeString,
	"datetime":  TypeString,
	"timestamp": TypeString,
	"number":    TypeNumber,
	"integer":   TypeNumber,
	"float":     TypeNumber,
	"double":    TypeNumber,
	"boolean":   TypeBoolean,
	"array":     TypeArray,
	"object":    TypeObject,
	"json":      TypeObject,
	"any":       TypeAny,
}

// NormalizeType maps a loosely specified type name onto the canonical set.
// Unrecognised names fall back to string so malformed catalog rows never break a request.
func NormalizeType(raw string) NormalizedType {
	if t, ok := rawTypeTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return TypeString
}

// IsKnownType reports whether raw is a recognised type name, before defaulting
func IsKnownType(raw string) bool {
	_, ok := rawTypeTable[strings.ToLower(strings.TrimSpace(raw))]
	return ok
}

// Valid reports whether t is one of the canonical types
func (t NormalizedType) Valid() bool {
	for _, candidate := range NormalizedTypes {
		if t == candidate {
			return true
		}
	}
	return false
}

// TypeOfValue infers the canonical type of a decoded JSON value
func TypeOfValue(value interface{}) NormalizedType {
	switch value.(type) {
	case nil:
		return TypeAny
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case float64, float32, int, int32, int64:
		return TypeNumber
	case []interface{}:
		return TypeArray
	case map[string]interface{}:
		return TypeObject
	default:
		return TypeAny
	}
}
