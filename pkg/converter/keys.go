// pkg/converter/keys.go
package converter

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// ValueClass groups stored values by how they compare
type ValueClass int

const (
	ClassNull ValueClass = iota
	ClassNumber
	ClassText
	ClassBool
	ClassTime
	ClassOther
)

// String returns a readable name for the class
func (c ValueClass) String() string {
	switch c {
	case ClassNull:
		return "null"
	case ClassNumber:
		return "number"
	case ClassText:
		return "text"
	case ClassBool:
		return "bool"
	case ClassTime:
		return "time"
	default:
		return "other"
	}
}

// Classify returns the comparison class of a value without coercing it.
// Numeric text is still text.
func Classify(value interface{}) ValueClass {
	value = NormalizeValue(value)
	if IsNull(value) {
		return ClassNull
	}
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return ClassNumber
	case string:
		return ClassText
	case bool:
		return ClassBool
	case time.Time:
		return ClassTime
	default:
		return ClassOther
	}
}

// Key returns a canonical identity for a value so that equal values stored
// with different numeric widths (int64 from SQL, float64 from JSON) collide,
// while values of different classes never do.
func Key(value interface{}) string {
	value = NormalizeValue(value)
	switch Classify(value) {
	case ClassNull:
		return "null"
	case ClassNumber:
		return "n:" + numberKey(value)
	case ClassText:
		return "s:" + value.(string)
	case ClassBool:
		return "b:" + strconv.FormatBool(value.(bool))
	case ClassTime:
		return "t:" + value.(time.Time).UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("x:%T:%v", value, value)
	}
}

func numberKey(value interface{}) string {
	switch v := value.(type) {
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return floatKey(float64(v))
	case float64:
		return floatKey(v)
	}
	return fmt.Sprintf("%v", value)
}

func floatKey(f float64) string {
	if math.Trunc(f) == f && math.Abs(f) < 1<<63 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Equal compares two values by class and canonical identity with no
// cross-class coercion: "1" and 1 are different values.
func Equal(a, b interface{}) bool {
	ca, cb := Classify(a), Classify(b)
	if ca != cb || ca == ClassNull {
		return false
	}
	return Key(a) == Key(b)
}
