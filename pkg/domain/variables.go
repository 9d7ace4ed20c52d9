package domain

import (
	"fmt"
	"strings"
	"time"
)

// ValueType classifies a variable value for operator validation.
type ValueType string

const (
	TypeNull       ValueType = "null"
	TypeString     ValueType = "string"
	TypeInteger    ValueType = "integer"
	TypeDouble     ValueType = "double"
	TypeBoolean    ValueType = "boolean"
	TypeDate       ValueType = "date"
	TypeBytes      ValueType = "bytes"
	TypeSerialized ValueType = "serialized"
)

// Orderable reports whether values of this type support ordering comparisons.
// Booleans, byte arrays and serialized objects are equality-only.
func (t ValueType) Orderable() bool {
	switch t {
	case TypeString, TypeInteger, TypeDouble, TypeDate:
		return true
	}
	return false
}

// TypeClassifier maps variable values to value types. Query builders use it to
// validate comparison operators; the engine itself treats values opaquely.
type TypeClassifier interface {
	Classify(v any) ValueType
}

// StandardTypes is the default classifier covering Go primitives, time.Time
// and byte slices. Anything else is treated as an opaque serialized object.
type StandardTypes struct{}

// Classify implements TypeClassifier.
func (StandardTypes) Classify(v any) ValueType {
	switch v.(type) {
	case nil:
		return TypeNull
	case string:
		return TypeString
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case float32, float64:
		return TypeDouble
	case bool:
		return TypeBoolean
	case time.Time:
		return TypeDate
	case []byte:
		return TypeBytes
	}
	return TypeSerialized
}

// Operator is a variable comparison operator.
type Operator string

const (
	OpEquals         Operator = "eq"
	OpNotEquals      Operator = "neq"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
	OpLike           Operator = "like"
)

// Orders reports whether the operator needs an orderable operand type.
func (op Operator) Orders() bool {
	switch op {
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return true
	}
	return false
}

// CompareValues orders two variable values of compatible types.
// Returns <0, 0, >0. Numeric values compare across int/float kinds.
func CompareValues(a, b any) (int, error) {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		if !bok {
			return 0, fmt.Errorf("cannot compare number with %T", b)
		}
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		}
		return 0, nil
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, fmt.Errorf("cannot compare string with %T", b)
		}
		return strings.Compare(av, bv), nil
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, fmt.Errorf("cannot compare date with %T", b)
		}
		switch {
		case av.Before(bv):
			return -1, nil
		case av.After(bv):
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("type %T does not support ordering", a)
}

// EqualValues tests equality, folding numeric kinds together.
func EqualValues(a, b any) bool {
	if af, ok := asFloat(a); ok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	if at, ok := a.(time.Time); ok {
		bt, bok := b.(time.Time)
		return bok && at.Equal(bt)
	}
	return a == b
}

// MatchLike applies a SQL-style pattern with '%' as the only wildcard:
// starts-with (string%), ends-with (%string) or contains (%string%).
func MatchLike(value, pattern string) bool {
	segments := strings.Split(pattern, "%")
	if len(segments) == 1 {
		return value == pattern
	}
	if !strings.HasPrefix(value, segments[0]) {
		return false
	}
	value = value[len(segments[0]):]
	last := segments[len(segments)-1]
	middle := segments[1 : len(segments)-1]
	for _, seg := range middle {
		if seg == "" {
			continue
		}
		i := strings.Index(value, seg)
		if i < 0 {
			return false
		}
		value = value[i+len(seg):]
	}
	return strings.HasSuffix(value, last)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
