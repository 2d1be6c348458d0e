package model

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
)

// Metadata is an open string-to-scalar mapping attached to a memory. Values
// are restricted to a closed set of scalar kinds so the stored payload stays
// checkable; nested structures are rejected at the boundary.
type Metadata map[string]MetaValue

type MetaKind int

const (
	MetaString MetaKind = iota
	MetaNumber
	MetaBool
)

// MetaValue is a scalar metadata value: string, number or boolean.
type MetaValue struct {
	kind MetaKind
	str  string
	num  float64
	b    bool
}

func StringValue(s string) MetaValue  { return MetaValue{kind: MetaString, str: s} }
func NumberValue(f float64) MetaValue { return MetaValue{kind: MetaNumber, num: f} }
func BoolValue(b bool) MetaValue      { return MetaValue{kind: MetaBool, b: b} }

func (v MetaValue) Kind() MetaKind  { return v.kind }
func (v MetaValue) String() string  { return v.str }
func (v MetaValue) Number() float64 { return v.num }
func (v MetaValue) Bool() bool      { return v.b }

// Any returns the value as an untyped scalar, for handing to payload builders.
func (v MetaValue) Any() any {
	switch v.kind {
	case MetaNumber:
		return v.num
	case MetaBool:
		return v.b
	default:
		return v.str
	}
}

func (v MetaValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v *MetaValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = StringValue(t)
	case float64:
		*v = NumberValue(t)
	case bool:
		*v = BoolValue(t)
	default:
		return goerr.Wrap(ErrInvalidArgument, "metadata values must be scalar", goerr.V("value", raw))
	}
	return nil
}
