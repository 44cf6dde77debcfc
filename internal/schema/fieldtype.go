package schema

import "fmt"

// FieldType is the closed set of catalog field data types.
type FieldType int

const (
	FieldTypeUnknown FieldType = iota
	FieldTypeNumber
	FieldTypeString
	FieldTypeBoolean
	FieldTypeBytes
	FieldTypeDate
	FieldTypeTime
	FieldTypeEnum
	FieldTypeNull
	FieldTypeMap
	FieldTypeArray
	FieldTypeUnion
	FieldTypeRecord
)

var fieldTypeTags = map[FieldType]string{
	FieldTypeNumber:  "NumberType",
	FieldTypeString:  "StringType",
	FieldTypeBoolean: "BooleanType",
	FieldTypeBytes:   "BytesType",
	FieldTypeDate:    "DateType",
	FieldTypeTime:    "TimeType",
	FieldTypeEnum:    "EnumType",
	FieldTypeNull:    "NullType",
	FieldTypeMap:     "MapType",
	FieldTypeArray:   "ArrayType",
	FieldTypeUnion:   "UnionType",
	FieldTypeRecord:  "RecordType",
}

var tagFieldTypes = func() map[string]FieldType {
	m := make(map[string]FieldType, len(fieldTypeTags))
	for t, tag := range fieldTypeTags {
		m[tag] = t
	}
	return m
}()

// UnknownTypeError is returned for a type tag outside the closed set. It
// means the catalog changed shape or holds bad data; callers must stop.
type UnknownTypeError struct {
	Tag       string
	FieldPath string
}

func (e *UnknownTypeError) Error() string {
	if e.FieldPath != "" {
		return fmt.Sprintf("unknown field type %q on field %s", e.Tag, e.FieldPath)
	}
	return fmt.Sprintf("unknown field type %q", e.Tag)
}

// ParseFieldType maps a catalog type tag such as "StringType" to its FieldType.
func ParseFieldType(tag string) (FieldType, error) {
	if t, ok := tagFieldTypes[tag]; ok {
		return t, nil
	}
	return FieldTypeUnknown, &UnknownTypeError{Tag: tag}
}

// Tag returns the catalog tag of the type, e.g. "StringType".
func (t FieldType) Tag() string {
	return fieldTypeTags[t]
}

func (t FieldType) String() string {
	if tag, ok := fieldTypeTags[t]; ok {
		return tag
	}
	return "UnknownType"
}
