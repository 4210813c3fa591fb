package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const typicalPayload = `Reference Entity Name,Asset Class,Notional Currency,Effective Date,Maturity Date,Price Notation Value,Price Notation Type,Notional Amount
UNITED STATES OF AMERICA,Credit Default Swap,USD,2024-01-02,2029-01-02,42.5,BPS,5000000
FRENCH REPUBLIC,Credit Default Swap,EUR,2024-01-02,2029-01-02,28.0,BPS,2000000
`

func TestNormalize_TypicalHeader(t *testing.T) {
	records, err := Normalize([]byte(typicalPayload))
	require.NoError(t, err)
	require.Len(t, records, 2)

	r := records[0]
	assert.Equal(t, 0, r.RowIndex)
	assert.Equal(t, Some("UNITED STATES OF AMERICA"), r.Entity)
	assert.Equal(t, Some("Credit Default Swap"), r.AssetClass)
	assert.Equal(t, Some("USD"), r.Currency)
	assert.Equal(t, Some("2024-01-02"), r.EffectiveDate)
	assert.Equal(t, Some("2029-01-02"), r.MaturityDate)
	assert.Equal(t, Some("42.5"), r.Price)
	assert.Equal(t, Some("BPS"), r.PriceUnit)
	assert.Equal(t, Some("5000000"), r.Notional)
	assert.False(t, r.Tenor.OK, "no tenor column in this schema variant")
	assert.False(t, r.Spread.OK)
}

func TestNormalize_SnakeCaseHeaderVariant(t *testing.T) {
	payload := "reference_entity,product_type,currency,spread_bps,notional_amount\n" +
		"ITALY,CDS,EUR,95.2,1000000\n"
	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, Some("ITALY"), records[0].Entity)
	assert.Equal(t, Some("CDS"), records[0].AssetClass)
	assert.Equal(t, Some("95.2"), records[0].Spread)
	assert.Equal(t, Some("1000000"), records[0].Notional)
}

func TestNormalize_EntityTieBreakPrefersDistinctValues(t *testing.T) {
	// Neither column matches an exact alias; both contain an entity token.
	// The constant category column must lose to the varied name column.
	payload := "Obligor Group,Obligor,price\n" +
		"SOVEREIGN,UNITED STATES OF AMERICA,10\n" +
		"SOVEREIGN,FRENCH REPUBLIC,11\n" +
		"SOVEREIGN,ITALY,12\n"
	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Some("UNITED STATES OF AMERICA"), records[0].Entity)
	assert.Equal(t, Some("ITALY"), records[2].Entity)
}

func TestNormalize_UnresolvedFieldsStayUnresolved(t *testing.T) {
	payload := "alpha,beta\nfoo,bar\n"
	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.False(t, r.Entity.OK)
	assert.False(t, r.Currency.OK)
	assert.False(t, r.Spread.OK)
	assert.False(t, r.Notional.OK)
}

func TestNormalize_NumericFallbackForPrice(t *testing.T) {
	// No price-named column; the numeric column is picked up by coercion.
	payload := "entity_name,comment,quote\n" +
		"USA,seen at open,41.5\n" +
		"USA,late print,42.0\n"
	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Some("41.5"), records[0].Price)
	assert.Equal(t, Some("42.0"), records[1].Price)
}

func TestNormalize_LenientFallbackOnRaggedRows(t *testing.T) {
	// Variable field counts abort the strict parse; lenient keeps going.
	payload := "entity_name,price,notional_amount\n" +
		"USA,42.5,1000000\n" +
		"USA,43.0,2000000,EXTRA,FIELDS\n" +
		"USA,41.0\n"
	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, Some("42.5"), records[0].Price)
	assert.Equal(t, Some("43.0"), records[1].Price)
	assert.False(t, records[2].Notional.OK, "short row's missing cell stays absent")
}

func TestNormalize_Unparseable(t *testing.T) {
	_, err := Normalize([]byte(""))
	require.Error(t, err)
}

func TestNormalize_EmptyCellsAreAbsent(t *testing.T) {
	payload := "entity_name,price,notional_amount\nUSA,,1000000\n"
	records, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Price.OK, "an empty cell is absent, not an empty string")
}

func TestCanonName(t *testing.T) {
	cases := map[string]string{
		"Price Notation Value": "pricenotationvalue",
		"price_notation_value": "pricenotationvalue",
		"priceNotationValue":   "pricenotationvalue",
		"  Notional Amount  ":  "notionalamount",
	}
	for in, want := range cases {
		assert.Equal(t, want, canonName(in), "canonName(%q)", in)
	}
}

func TestCoerceNumber(t *testing.T) {
	v, ok := CoerceNumber("1,234,567.5")
	require.True(t, ok)
	assert.Equal(t, 1234567.5, v)

	v, ok = CoerceNumber(" 42 ")
	require.True(t, ok)
	assert.Equal(t, 42.0, v)

	for _, bad := range []string{"", "n/a", "NaN", "Inf", "-Inf", "12..3"} {
		_, ok := CoerceNumber(bad)
		assert.False(t, ok, "CoerceNumber(%q) must fail", bad)
	}
}

func TestDetectUnit(t *testing.T) {
	assert.Equal(t, UnitBps, DetectUnit("BPS"))
	assert.Equal(t, UnitBps, DetectUnit("Basis Points"))
	assert.Equal(t, UnitBps, DetectUnit("bp"))
	assert.Equal(t, UnitPercent, DetectUnit("Percentage"))
	assert.Equal(t, UnitPercent, DetectUnit("%"))
	assert.Equal(t, UnitPercent, DetectUnit("pct of par"))
	assert.Equal(t, UnitUnknown, DetectUnit("USD"))
	assert.Equal(t, UnitUnknown, DetectUnit(""))
}

func TestFractionToBps(t *testing.T) {
	v, ok := FractionToBps(0.05)
	require.True(t, ok)
	assert.InDelta(t, 500.0, v, 1e-9)

	v, ok = FractionToBps(0)
	require.True(t, ok)
	assert.Equal(t, 0.0, v)

	for _, bad := range []float64{1.0, 5.0, 500, -0.01} {
		_, ok := FractionToBps(bad)
		assert.False(t, ok, "FractionToBps(%v) must refuse", bad)
	}
}
