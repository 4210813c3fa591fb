// Package schema parses the feed's delimited payloads and maps its unstable
// vendor columns onto a small set of canonical semantic fields. Column
// discovery is heuristic; a field that cannot be located stays unresolved
// rather than being defaulted.
package schema

// Field is an option-typed cell value: either the raw string from a resolved
// column, or explicitly absent.
type Field struct {
	Value string
	OK    bool
}

// Some returns a present field.
func Some(v string) Field { return Field{Value: v, OK: true} }

// None returns an absent field.
func None() Field { return Field{} }

// Record is one normalized row. Every canonical field has attempted column
// resolution; any of them may be absent.
type Record struct {
	// RowIndex is the zero-based data-row index in the raw payload,
	// kept for diagnostics.
	RowIndex int

	Entity        Field
	AssetClass    Field
	Currency      Field
	Tenor         Field
	EffectiveDate Field
	MaturityDate  Field
	Price         Field
	PriceUnit     Field
	Spread        Field
	Coupon        Field
	Notional      Field
}

// PriceUnitKind classifies a unit/type-like cell.
type PriceUnitKind int

const (
	UnitUnknown PriceUnitKind = iota
	UnitBps
	UnitPercent
)
