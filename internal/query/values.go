package query

import (
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// NormalizeValue maps a value decoded by pgx onto nil, bool, int64, float64
// or string. Anything else is replaced by its canonical text form.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return val
	case bool:
		return val
	case int64:
		return val
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val > math.MaxInt64 {
			return strconv.FormatUint(val, 10)
		}
		return int64(val)
	case uint:
		return NormalizeValue(uint64(val))
	case float64:
		return normalizeFloat(val)
	case float32:
		return normalizeFloat(float64(val))
	case [16]byte:
		return uuid.UUID(val).String()
	case uuid.UUID:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case []byte:
		return `\x` + hex.EncodeToString(val)
	case pgtype.Numeric:
		return numericText(val)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	case driver.Valuer:
		dv, err := val.Value()
		if err != nil {
			return fmt.Sprint(val)
		}
		if dv == nil {
			return nil
		}
		if s, ok := dv.(string); ok {
			return s
		}
		return toText(NormalizeValue(dv))
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// normalizeFloat keeps finite floats; NaN and infinities have no JSON form.
func normalizeFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}

// toText renders a normalized scalar as text. Valuers that are not natively
// one of the allowed types still end up as strings.
func toText(v any) any {
	switch val := v.(type) {
	case nil, string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// numericText renders a numeric the way Postgres prints it, keeping the
// scale: 3.6000 stays "3.6000".
func numericText(n pgtype.Numeric) any {
	switch {
	case !n.Valid:
		return nil
	case n.NaN:
		return "NaN"
	case n.InfinityModifier == pgtype.Infinity:
		return "Infinity"
	case n.InfinityModifier == pgtype.NegativeInfinity:
		return "-Infinity"
	case n.Int == nil:
		return "0"
	}

	digits := new(big.Int).Abs(n.Int).String()
	if exp := int(n.Exp); exp >= 0 {
		digits += strings.Repeat("0", exp)
	} else {
		scale := -exp
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	}

	if n.Int.Sign() < 0 {
		return "-" + digits
	}
	return digits
}
