package ast

// Type is a Mashd symbol type tag.
type Type int

const (
	TypeUnknown Type = iota
	TypeInteger
	TypeDecimal
	TypeText
	TypeBoolean
	TypeDate
	TypeSchema
	TypeDataset
	TypeMashd
	TypeObject
	TypeType
)

var typeNames = [...]string{
	TypeUnknown: "Unknown",
	TypeInteger: "Integer",
	TypeDecimal: "Decimal",
	TypeText:    "Text",
	TypeBoolean: "Boolean",
	TypeDate:    "Date",
	TypeSchema:  "Schema",
	TypeDataset: "Dataset",
	TypeMashd:   "Mashd",
	TypeObject:  "Object",
	TypeType:    "Type",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "Unknown"
	}
	return typeNames[t]
}

// IsScalar reports whether values of t can be stored in a dataset row.
func (t Type) IsScalar() bool {
	switch t {
	case TypeInteger, TypeDecimal, TypeText, TypeBoolean, TypeDate:
		return true
	}
	return false
}

// ParseType maps a type name as written in source ("Integer", "Text", ...)
// to its tag.
func ParseType(name string) (Type, bool) {
	for i, n := range typeNames {
		if n == name && Type(i) != TypeUnknown {
			return Type(i), true
		}
	}
	return TypeUnknown, false
}
