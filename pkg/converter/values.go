// pkg/converter/values.go
package converter

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ErrNotNumeric is returned when a value cannot be read as a number
var ErrNotNumeric = errors.New("value is not numeric")

// IsNull determines if a value should be treated as missing: nil, an empty
// or blank string, or a NaN float
func IsNull(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []byte:
		return strings.TrimSpace(string(v)) == ""
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	}
	return false
}

// ToFloat reads a value as a float64. Numeric text is parsed; booleans,
// NaN and anything else are rejected.
func ToFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, ErrNotNumeric
	case bool:
		return 0, fmt.Errorf("%w: boolean %v", ErrNotNumeric, v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrNotNumeric, v)
		}
		return f, nil
	case string:
		return parseNumericText(v)
	case []byte:
		return parseNumericText(string(v))
	case time.Time:
		return 0, fmt.Errorf("%w: time value", ErrNotNumeric)
	}

	f, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNotNumeric, f)
	}
	return f, nil
}

func parseNumericText(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, fmt.Errorf("%w: empty string", ErrNotNumeric)
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	return f, nil
}

// IsIntegral reports whether a value is a number without a fractional part
func IsIntegral(value interface{}) bool {
	f, err := ToFloat(value)
	if err != nil {
		return false
	}
	return math.Trunc(f) == f
}

// boolLiterals is the fixed set of textual boolean spellings
var boolLiterals = map[string]bool{
	"true": true, "t": true, "yes": true, "1": true,
	"false": false, "f": false, "no": false, "0": false,
}

// ToBool reads a value as a boolean. Only Go booleans, the integers 0 and 1,
// and the literals in boolLiterals (case-insensitive) are accepted.
func ToBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, ok := boolLiterals[strings.ToLower(strings.TrimSpace(v))]
		if !ok {
			return false, fmt.Errorf("cannot parse %q as boolean", v)
		}
		return b, nil
	case []byte:
		return ToBool(string(v))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		i := cast.ToInt64(v)
		if i != 0 && i != 1 {
			return false, fmt.Errorf("cannot read integer %d as boolean", i)
		}
		return i == 1, nil
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", value)
	}
}

// dateLayouts are tried in order when parsing textual dates
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
}

// ToTime reads a value as a timestamp
func ToTime(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		return parseTimeText(v)
	case []byte:
		return parseTimeText(string(v))
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time", value)
	}
}

func parseTimeText(s string) (time.Time, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return time.Time{}, errors.New("empty string")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time from %q", cleaned)
}

// ToText renders a value as text for pattern matching
func ToText(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return s
}

// IsText reports whether a value is stored as text
func IsText(value interface{}) bool {
	switch value.(type) {
	case string, []byte:
		return true
	}
	return false
}

// NormalizeValue converts driver-specific representations into the plain
// types checks operate on: []byte becomes string, json.Number becomes
// int64 or float64.
func NormalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	}
	return value
}

// SampleValue prepares a value for diagnostic output. Non-finite floats,
// which JSON cannot carry, are rendered as "NaN", "+Inf" or "-Inf".
func SampleValue(value interface{}) interface{} {
	value = NormalizeValue(value)
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return value
	}
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return value
}
