package pricing

import (
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront-harvester/internal/types"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(types.DefaultConfig(), logrus.New())
}

func TestNormalize_PlainDecimalString(t *testing.T) {
	n := newTestNormalizer()

	got := n.Normalize("19.99")

	require.NotNil(t, got)
	assert.Equal(t, 19.99, *got)
}

func TestNormalize_EuropeanFormat(t *testing.T) {
	n := newTestNormalizer()

	got := n.Normalize("1.234,56")

	require.NotNil(t, got)
	assert.Equal(t, 1234.56, *got)
}

func TestNormalize_USFormatWithThousands(t *testing.T) {
	n := newTestNormalizer()

	got := n.Normalize("$1,234.56")

	require.NotNil(t, got)
	assert.Equal(t, 1234.56, *got)
}

func TestNormalize_CommaDecimal(t *testing.T) {
	n := newTestNormalizer()

	got := n.Normalize("19,99")

	require.NotNil(t, got)
	assert.Equal(t, 19.99, *got)
}

func TestNormalize_CurrencySymbolStripped(t *testing.T) {
	n := newTestNormalizer()

	got := n.Normalize("€ 45.00")

	require.NotNil(t, got)
	assert.Equal(t, 45.0, *got)
}

func TestNormalize_MinorUnitHeuristic(t *testing.T) {
	n := newTestNormalizer()

	got := n.Normalize(map[string]interface{}{"raw": float64(1999)})

	require.NotNil(t, got)
	assert.Equal(t, 19.99, *got)
}

func TestNormalize_BelowThresholdNotDivided(t *testing.T) {
	n := newTestNormalizer()

	got := n.Normalize(map[string]interface{}{"raw": float64(45)})

	require.NotNil(t, got)
	assert.Equal(t, 45.0, *got)
}

func TestNormalize_ObjectPrefersRawOverValue(t *testing.T) {
	n := newTestNormalizer()

	got := n.Normalize(map[string]interface{}{"raw": "12.50", "value": "99.99"})

	require.NotNil(t, got)
	assert.Equal(t, 12.5, *got)
}

func TestNormalize_ObjectValueFallback(t *testing.T) {
	n := newTestNormalizer()

	got := n.Normalize(map[string]interface{}{"value": "99.99"})

	require.NotNil(t, got)
	assert.Equal(t, 99.99, *got)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newTestNormalizer()

	first := n.Normalize("19.99")
	require.NotNil(t, first)

	second := n.Normalize(*first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
}

func TestNormalize_NilAndEmpty(t *testing.T) {
	n := newTestNormalizer()

	assert.Nil(t, n.Normalize(nil))
	assert.Nil(t, n.Normalize(""))
	assert.Nil(t, n.Normalize("free shipping"))
	assert.Nil(t, n.Normalize(map[string]interface{}{}))
	assert.Nil(t, n.Normalize([]string{"not", "a", "price"}))
}

func TestNormalize_NegativeReturnsNil(t *testing.T) {
	n := newTestNormalizer()

	assert.Nil(t, n.Normalize(float64(-5)))
}

func TestNormalize_JSONNumber(t *testing.T) {
	n := newTestNormalizer()

	got := n.Normalize(json.Number("29.95"))

	require.NotNil(t, got)
	assert.Equal(t, 29.95, *got)
}

func TestNormalize_ConfigurableThreshold(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.MinorUnitThreshold = 5000
	n := NewNormalizer(cfg, logrus.New())

	// 1999 stays whole dollars under the raised threshold.
	got := n.Normalize("1999")
	require.NotNil(t, got)
	assert.Equal(t, 1999.0, *got)

	got = n.Normalize("599900")
	require.NotNil(t, got)
	assert.Equal(t, 5999.0, *got)
}

func TestNormalize_StoreAPIMinorUnitString(t *testing.T) {
	n := newTestNormalizer()

	// WooCommerce Store API ships prices as minor-unit strings.
	got := n.Normalize("2499")

	require.NotNil(t, got)
	assert.Equal(t, 24.99, *got)
}
