package utils

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericToFloat64 reads a nullable numeric column. NULL and unreadable values
// become 0.
func NumericToFloat64(value pgtype.Numeric) float64 {
	if !value.Valid {
		return 0
	}
	f, err := value.Float64Value()
	if err == nil && f.Valid {
		return f.Float64
	}
	// fallback to string parse
	text, err := value.MarshalJSON()
	if err != nil {
		return 0
	}
	parsed, err := decimal.NewFromString(strings.Trim(string(text), `"`))
	if err != nil {
		return 0
	}
	return parsed.InexactFloat64()
}

// NumericToFloat64Ptr keeps NULL distinguishable from zero.
func NumericToFloat64Ptr(value pgtype.Numeric) *float64 {
	if !value.Valid {
		return nil
	}
	f := NumericToFloat64(value)
	return &f
}
