// Package pricing converts the heterogeneous price representations found in
// storefront APIs (currency-prefixed strings, minor-unit integers, nested
// raw/value objects, localized decimal separators) into canonical decimal
// amounts in major currency units.
package pricing

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"storefront-harvester/internal/types"
)

// DefaultMinorUnitThreshold is the value above which a whole-number price is
// assumed to be expressed in minor units (cents) and divided by 100.
const DefaultMinorUnitThreshold = 1000

var nonPriceChars = regexp.MustCompile(`[^0-9.,]`)

// Normalizer parses raw price values into major-unit decimals.
//
// The minor-unit heuristic is a known source of mis-parsed prices for
// genuinely expensive items (a $1999 whole-dollar price is indistinguishable
// from 19.99 in cents), so the threshold is configurable and every trigger
// is logged.
type Normalizer struct {
	// MinorUnitThreshold: whole numbers strictly greater than this are
	// treated as minor units. Zero means DefaultMinorUnitThreshold.
	MinorUnitThreshold float64
	Logger             types.Logger
}

// NewNormalizer creates a Normalizer from config.
func NewNormalizer(cfg *types.Config, logger types.Logger) *Normalizer {
	threshold := cfg.MinorUnitThreshold
	if threshold == 0 {
		threshold = DefaultMinorUnitThreshold
	}
	return &Normalizer{MinorUnitThreshold: threshold, Logger: logger}
}

// Normalize parses raw into a non-negative major-unit decimal. It accepts
// strings, numbers, json.Number, and objects with a "raw" or "value" key
// (recursing on that key, "raw" preferred). It returns nil, never an error,
// when the input is absent, unparseable, or negative.
func (n *Normalizer) Normalize(raw interface{}) *float64 {
	switch v := raw.(type) {
	case nil:
		return nil
	case *float64:
		if v == nil {
			return nil
		}
		return n.fromFloat(*v)
	case float64:
		return n.fromFloat(v)
	case float32:
		return n.fromFloat(float64(v))
	case int:
		return n.fromFloat(float64(v))
	case int64:
		return n.fromFloat(float64(v))
	case json.Number:
		return n.fromString(v.String())
	case string:
		return n.fromString(v)
	case map[string]interface{}:
		if inner, ok := v["raw"]; ok && inner != nil {
			return n.Normalize(inner)
		}
		if inner, ok := v["value"]; ok && inner != nil {
			return n.Normalize(inner)
		}
		return nil
	default:
		return nil
	}
}

func (n *Normalizer) fromString(s string) *float64 {
	cleaned := nonPriceChars.ReplaceAllString(s, "")
	if cleaned == "" {
		return nil
	}

	hasDot := strings.Contains(cleaned, ".")
	hasComma := strings.Contains(cleaned, ",")

	switch {
	case hasDot && hasComma:
		// Whichever separator appears last is the decimal separator.
		// "1.234,56" -> 1234.56 and "1,234.56" -> 1234.56.
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case hasComma:
		// A single comma is a decimal separator; multiple commas are
		// thousands separators ("1,234,567").
		if strings.Count(cleaned, ",") == 1 {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return n.fromFloat(value)
}

func (n *Normalizer) fromFloat(value float64) *float64 {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	threshold := n.MinorUnitThreshold
	if threshold == 0 {
		threshold = DefaultMinorUnitThreshold
	}
	if value == math.Trunc(value) && value > threshold {
		if n.Logger != nil {
			n.Logger.Warnf("price %v exceeds minor-unit threshold %v, dividing by 100", value, threshold)
		}
		value = value / 100
	}
	return &value
}
