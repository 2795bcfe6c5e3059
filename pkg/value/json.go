package value

import (
	"encoding/json"
	"time"
)

// ToJSON marshals a Value to JSON bytes.
// Objects and rows preserve key order; datasets render as schema plus rows.
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(toRaw(v))
}

// ToJSONString is a convenience that returns a string.
func ToJSONString(v Value) string {
	b, err := ToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func toRaw(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Integer:
		return val.Value
	case Decimal:
		return val.Value
	case Text:
		return val.Value
	case Boolean:
		return val.Value
	case Date:
		return val.Value.Format(DateLayout)
	case Type:
		return val.Value.String()
	case Object:
		pairs := make([]orderedPair, len(val.Props))
		for i, p := range val.Props {
			pairs[i] = orderedPair{key: p.Key, value: toRaw(p.Value)}
		}
		return orderedObject(pairs)
	case SchemaField:
		return schemaFieldJSON{Type: val.Type.String(), Name: val.Name}
	case *Schema:
		return schemaToRaw(val)
	case *Dataset:
		rows := make([]any, len(val.Rows))
		for i, r := range val.Rows {
			rows[i] = RowToRaw(r)
		}
		return orderedObject{
			{key: "schema", value: schemaToRaw(val.Schema)},
			{key: "rows", value: rows},
		}
	case PropertyAccess:
		return val.String()
	case DatasetPlaceholder:
		return val.Name
	case *FunctionDefinition:
		return "fn " + val.Decl.Name
	case *Combination:
		return orderedObject{
			{key: "left", value: val.LeftID},
			{key: "right", value: val.RightID},
			{key: "conditions", value: len(val.Conditions)},
			{key: "transform", value: val.Transform != nil},
		}
	}
	return nil
}

type schemaFieldJSON struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func schemaToRaw(s *Schema) any {
	pairs := make([]orderedPair, 0, s.Len())
	for _, k := range s.Keys() {
		f, _ := s.Field(k)
		pairs = append(pairs, orderedPair{key: k, value: schemaFieldJSON{Type: f.Type.String(), Name: f.Name}})
	}
	return orderedObject(pairs)
}

// RowToRaw converts a row into a JSON-marshalable ordered object.
func RowToRaw(r *Row) any {
	pairs := make([]orderedPair, len(r.Cells))
	for i, c := range r.Cells {
		v := c.Value
		if t, ok := v.(time.Time); ok {
			v = t.Format(DateLayout)
		}
		pairs[i] = orderedPair{key: c.Column, value: v}
	}
	return orderedObject(pairs)
}

type orderedPair struct {
	key   string
	value any
}

// orderedObject preserves key order in JSON output.
type orderedObject []orderedPair

func (o orderedObject) MarshalJSON() ([]byte, error) {
	if len(o) == 0 {
		return []byte("{}"), nil
	}

	buf := []byte{'{'}
	for i, p := range o {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyBytes, err := json.Marshal(p.key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')

		valBytes, err := json.Marshal(p.value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, valBytes...)
	}
	buf = append(buf, '}')
	return buf, nil
}
