package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// renderValue converts a driver value into something JSON can carry as-is.
// Strings, integers, finite floats, booleans and NULL pass through;
// everything else becomes a string. NaN and infinities use PostgreSQL's
// own spellings ("NaN", "Infinity", "-Infinity") since JSON has no
// number for them.
func renderValue(v any) any {
	switch val := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return val
	case float32:
		if s, ok := nonFinite(float64(val)); ok {
			return s
		}
		return val
	case float64:
		if s, ok := nonFinite(val); ok {
			return s
		}
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case [16]byte:
		return uuid.UUID(val).String()
	case []byte:
		return string(val)
	case driver.Valuer:
		inner, err := val.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		if inner == nil {
			return nil
		}
		return renderValue(inner)
	case fmt.Stringer:
		return val.String()
	case map[string]any, []any, []string:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}

func nonFinite(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "Infinity", true
	case math.IsInf(f, -1):
		return "-Infinity", true
	}
	return "", false
}
