package dataset

import (
	"math"
	"strconv"
	"time"
)

// Kind is the dynamic type of a table cell.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	default:
		return "null"
	}
}

// Value is a single typed scalar. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	t    time.Time
	// raw keeps the original cell text of delimited sources so exports round-trip.
	raw string
}

// NullValue returns the null value.
func NullValue() Value { return Value{} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps a number. NaN is stored as null.
func NumberValue(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

// TimeValue wraps a timestamp. The zero time is stored as null.
func TimeValue(t time.Time) Value {
	if t.IsZero() {
		return Value{}
	}
	return Value{kind: KindTime, t: t}
}

func (v Value) withRaw(raw string) Value {
	v.raw = raw
	return v
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsNumber() bool { return v.kind == KindNumber }

// Text returns the string payload of a string value.
func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Float returns the numeric payload of a number value.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// Time returns the payload of a timestamp value.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.t, true
}

// Key is a canonical string used for grouping and set membership.
// Numbers use the shortest representation so 2019 and "2019.0" agree.
func (v Value) Key() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// String renders the value for display and export. Null renders empty.
func (v Value) String() string {
	if v.raw != "" && v.kind != KindNull {
		return v.raw
	}
	switch v.kind {
	case KindTime:
		return v.t.Format("2006-01-02 15:04:05")
	default:
		return v.Key()
	}
}

// Equal reports whether two values have the same kind and key.
func (v Value) Equal(o Value) bool {
	return v.kind == o.kind && v.Key() == o.Key()
}
