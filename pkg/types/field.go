package types

// FieldType classifies a searchable field and drives which operators and
// which value input apply to it.
type FieldType int

const (
	FieldNumeric FieldType = iota
	FieldText
	FieldBoolean
	FieldDate
	FieldTime
	FieldDateTime
	FieldChoice
	FieldMultiChoice
)

var fieldTypeTags = [...]string{
	FieldNumeric:     "float",
	FieldText:        "str",
	FieldBoolean:     "bool",
	FieldDate:        "date",
	FieldTime:        "time",
	FieldDateTime:    "datetime",
	FieldChoice:      "list",
	FieldMultiChoice: "listmult",
}

// String returns the selector tag of the field type.
func (t FieldType) String() string {
	if t < 0 || int(t) >= len(fieldTypeTags) {
		return "unknown"
	}
	return fieldTypeTags[t]
}

// IsEnumerable reports whether values of this type are picked from an option set.
func (t FieldType) IsEnumerable() bool {
	return t == FieldChoice || t == FieldMultiChoice
}

// ParseFieldType converts a selector tag back to a FieldType.
func ParseFieldType(tag string) (FieldType, bool) {
	for i, s := range fieldTypeTags {
		if s == tag {
			return FieldType(i), true
		}
	}
	return 0, false
}

// ScalarKind is the storage-level kind of a non-relation field as reported by
// a metadata provider.
type ScalarKind string

const (
	KindInteger  ScalarKind = "integer"
	KindFloat    ScalarKind = "float"
	KindBoolean  ScalarKind = "boolean"
	KindText     ScalarKind = "text"
	KindDate     ScalarKind = "date"
	KindTime     ScalarKind = "time"
	KindDateTime ScalarKind = "datetime"
)

// Option is one selectable value of an enumerable field.
type Option struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Bounds describes the numeric input range offered for a Numeric field.
type Bounds struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Precision int     `json:"precision"`
}

// DefaultIntegerBounds and DefaultFloatBounds are the input ranges used when a
// provider does not declare any.
var (
	DefaultIntegerBounds = Bounds{Min: 0, Max: 10, Precision: 0}
	DefaultFloatBounds   = Bounds{Min: 0, Max: 10, Precision: 2}
)

// FieldMeta is what a metadata provider knows about one path segment of an
// entity. Relation segments carry the related entity; reverse segments also
// carry the field on the related entity that points back.
type FieldMeta struct {
	StorageName   string
	Label         string
	Kind          ScalarKind
	IsRelation    bool
	IsMultiValued bool
	IsReverse     bool
	RelatedEntity string
	ReverseField  string
	Choices       []Option
	Bounds        *Bounds
}
