package sheet

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindDate
	KindBool
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a single spreadsheet cell: Null, Text, Number, Date or Bool.
//
// Two values are equal only when they hold the same kind. Text compares
// byte-for-byte, Number compares as float64 (so 123 and 123.0 match),
// Date compares instants, and Null matches Null. There is no coercion
// between kinds: the text "000123" never equals the number 123.
type Value struct {
	kind Kind
	text string
	num  float64
	at   time.Time
	flag bool
}

// Null returns the empty value.
func Null() Value { return Value{} }

// TextValue wraps a string.
func TextValue(s string) Value { return Value{kind: KindText, text: s} }

// NumberValue wraps a float. Negative zero is normalised to zero and NaN,
// which equals nothing, becomes Null.
func NumberValue(f float64) Value {
	if math.IsNaN(f) {
		return Null()
	}
	if f == 0 {
		f = 0
	}
	return Value{kind: KindNumber, num: f}
}

// DateValue wraps a point in time.
func DateValue(t time.Time) Value { return Value{kind: KindDate, at: t} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: KindBool, flag: b} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) Text() string    { return v.text }
func (v Value) Number() float64 { return v.num }
func (v Value) Time() time.Time { return v.at }
func (v Value) Bool() bool      { return v.flag }

// Equal reports whether v and o are the same key value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num == o.num
	case KindDate:
		return v.at.Equal(o.at)
	case KindBool:
		return v.flag == o.flag
	default:
		return true
	}
}

// Key returns a string that is identical for two values exactly when
// Equal reports true. It is used to hash join keys.
func (v Value) Key() string {
	switch v.kind {
	case KindText:
		return "t:" + v.text
	case KindNumber:
		return "n:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindDate:
		return "d:" + v.at.UTC().Format(time.RFC3339Nano)
	case KindBool:
		return "b:" + strconv.FormatBool(v.flag)
	default:
		return "null"
	}
}

// String formats the value for display and for use as a header name.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return formatNumber(v.num)
	case KindDate:
		if v.at.Hour() == 0 && v.at.Minute() == 0 && v.at.Second() == 0 && v.at.Nanosecond() == 0 {
			return v.at.Format("2006-01-02")
		}
		return v.at.Format("2006-01-02 15:04:05")
	case KindBool:
		if v.flag {
			return "TRUE"
		}
		return "FALSE"
	default:
		return ""
	}
}

// Interface returns the Go value written to a workbook cell.
// Null maps to nil so the encoder leaves the cell empty.
func (v Value) Interface() any {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.num
	case KindDate:
		return v.at
	case KindBool:
		return v.flag
	default:
		return nil
	}
}

// MarshalJSON encodes numbers and booleans natively, dates and text as
// strings, and Null as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsInf(v.num, 0) || math.IsNaN(v.num) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.flag)
	case KindText, KindDate:
		return json.Marshal(v.String())
	default:
		return []byte("null"), nil
	}
}

// formatNumber prints integral values without a decimal point.
func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
