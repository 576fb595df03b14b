package types

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
)

// Value is a tagged scalar: null, string or number.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
}

func Null() Value { return Value{Kind: KindNull} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func (v Value) IsNull() bool { return v.Kind == KindNull }
func (v Value) IsNumber() bool { return v.Kind == KindNumber }

// AsFloat converts the numeric values database drivers hand back: Go integers and floats,
// and decimal types exposing Float64 such as duckdb.Decimal or *big.Int.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int16:
		return float64(x), true
	case int8:
		return float64(x), true
	case int:
		return float64(x), true
	case uint64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case interface{ Float64() float64 }:
		return x.Float64(), true
	case interface {
		Float64() (float64, big.Accuracy)
	}:
		f, _ := x.Float64()
		return f, true
	default:
		return 0, false
	}
}

// Arg is the value handed to the driver as a bound parameter.
func (v Value) Arg() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return "null"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		b, err := json.Marshal(v.Num)
		return b, errors.WithStack(err)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = Null()
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return errors.WithStack(err)
		}
		*v = String(s)
	default:
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return errors.Wrap(err, "value must be null, string or number")
		}
		*v = Number(f)
	}
	return nil
}

// RecordRow is one result row. Columns and Values are parallel and keep the source order.
type RecordRow struct {
	Columns []string
	Values  []Value
}

func (r *RecordRow) Set(col string, v Value) {
	for i, c := range r.Columns {
		if c == col {
			r.Values[i] = v
			return
		}
	}
	r.Columns = append(r.Columns, col)
	r.Values = append(r.Values, v)
}

func (r RecordRow) Get(col string) (Value, bool) {
	for i, c := range r.Columns {
		if c == col {
			return r.Values[i], true
		}
	}
	return Null(), false
}

func (r RecordRow) Len() int { return len(r.Columns) }

// MarshalJSON writes an object whose keys follow the column order.
func (r RecordRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		val, err := r.Values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
