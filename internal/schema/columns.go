package schema

import (
	"strings"
)

// columnMap holds resolved column indexes; -1 means unresolved.
type columnMap struct {
	entity     int
	assetClass int
	currency   int
	tenor      int
	effective  int
	maturity   int
	price      int
	priceUnit  int
	spread     int
	coupon     int
	notional   int
}

func newColumnMap() columnMap {
	return columnMap{
		entity: -1, assetClass: -1, currency: -1, tenor: -1,
		effective: -1, maturity: -1, price: -1, priceUnit: -1,
		spread: -1, coupon: -1, notional: -1,
	}
}

// canonName lowercases a header and strips everything but letters and
// digits, so "Price Notation Value", "price_notation_value" and
// "priceNotationValue" all land on "pricenotationvalue".
func canonName(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Ranked exact-name aliases per canonical field, most specific first.
// Derived from observed SBSDR schema variants.
var (
	entityExact = []string{
		"referenceentityname", "referenceentity", "underlyingreferenceentity",
		"underliername", "underlyingname", "entityname", "entity", "name",
	}
	entityTokens = []string{"reference", "underlier", "underlying", "entity", "obligor", "name"}

	assetClassExact  = []string{"assetclass", "productclass", "productclassification", "producttype", "product"}
	assetClassTokens = []string{"assetclass", "productclass", "product", "asset"}

	currencyExact  = []string{"currency", "notionalcurrency", "pricecurrency", "sbsnotionalcurrency"}
	currencyTokens = []string{"curr"}

	tenorExact  = []string{"tenor", "maturitytenor", "contracttenor", "underliertenor"}
	tenorTokens = []string{"tenor"}

	effectiveExact  = []string{"effectivedate", "startdate", "effectivedatetime"}
	effectiveTokens = []string{"effective", "startdate"}

	maturityExact  = []string{"maturitydate", "terminationdate", "enddate"}
	maturityTokens = []string{"maturity", "termination"}

	priceExact  = []string{"price", "pricenotationvalue", "reportedprice", "executionprice", "dealprice"}
	priceTokens = []string{"price"}

	spreadExact  = []string{"spread", "spreadbps", "cdsspread"}
	spreadTokens = []string{"spread"}

	couponExact  = []string{"coupon", "fixedrate", "runningcoupon"}
	couponTokens = []string{"coupon", "fixedrate"}

	notionalExact  = []string{"notionalamount", "notional", "tradenotional", "quantity"}
	notionalTokens = []string{"notional"}
)

// resolveColumns maps canonical fields onto header indexes. rows are the
// data rows, used for tie-breaking and value-based fallbacks.
func resolveColumns(header []string, rows [][]string) columnMap {
	canon := make([]string, len(header))
	for i, h := range header {
		canon[i] = canonName(h)
	}

	cm := newColumnMap()
	claimed := make(map[int]bool)

	claim := func(idx int) int {
		if idx >= 0 {
			claimed[idx] = true
		}
		return idx
	}

	// Resolution order matters where alias tokens overlap: the price-unit
	// and currency columns are claimed before the broad "price"/"notional"
	// token passes can steal "Price Notation Type" or "Notional Currency",
	// and tenor before the maturity pass can take "Maturity Tenor".
	cm.priceUnit = claim(findPriceUnit(canon, claimed))
	cm.currency = claim(findByAlias(canon, claimed, currencyExact, currencyTokens))
	cm.tenor = claim(findByAlias(canon, claimed, tenorExact, tenorTokens))
	cm.effective = claim(findByAlias(canon, claimed, effectiveExact, effectiveTokens))
	cm.maturity = claim(findByAlias(canon, claimed, maturityExact, maturityTokens))
	cm.spread = claim(findByAlias(canon, claimed, spreadExact, spreadTokens))
	cm.price = claim(findByAlias(canon, claimed, priceExact, priceTokens))
	cm.coupon = claim(findByAlias(canon, claimed, couponExact, couponTokens))
	cm.notional = claim(findByAlias(canon, claimed, notionalExact, notionalTokens))
	cm.assetClass = claim(findAssetClass(canon, claimed, rows))
	cm.entity = claim(findEntity(canon, claimed, rows))

	// Numeric-coercion fallback: a price or notional that no alias matched
	// may still live in an unnamed numeric column.
	if cm.price < 0 && cm.spread < 0 {
		cm.price = claim(firstNumericColumn(rows, len(header), claimed))
	}
	if cm.notional < 0 {
		cm.notional = claim(firstNumericColumn(rows, len(header), claimed))
	}

	return cm
}

// findByAlias tries exact canonical matches in rank order, then substring
// matches against the token list.
func findByAlias(canon []string, claimed map[int]bool, exact, tokens []string) int {
	for _, alias := range exact {
		for i, c := range canon {
			if !claimed[i] && c == alias {
				return i
			}
		}
	}
	for _, tok := range tokens {
		for i, c := range canon {
			if !claimed[i] && strings.Contains(c, tok) {
				return i
			}
		}
	}
	return -1
}

// findPriceUnit looks for unit/type-flavored price columns.
func findPriceUnit(canon []string, claimed map[int]bool) int {
	for i, c := range canon {
		if claimed[i] {
			continue
		}
		if strings.Contains(c, "price") && (strings.Contains(c, "unit") || strings.Contains(c, "type")) {
			return i
		}
	}
	for i, c := range canon {
		if !claimed[i] && strings.Contains(c, "pricenotationtype") {
			return i
		}
	}
	return -1
}

// findEntity prefers ranked exact names; among substring candidates it picks
// the column with the most distinct values, the one most likely to carry a
// genuine identifying name rather than a constant category.
func findEntity(canon []string, claimed map[int]bool, rows [][]string) int {
	for _, alias := range entityExact {
		for i, c := range canon {
			if !claimed[i] && c == alias {
				return i
			}
		}
	}

	var candidates []int
	for i, c := range canon {
		if claimed[i] {
			continue
		}
		for _, tok := range entityTokens {
			if strings.Contains(c, tok) {
				candidates = append(candidates, i)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return -1
	}

	best, bestDistinct := candidates[0], -1
	for _, idx := range candidates {
		distinct := distinctCount(rows, idx)
		if distinct > bestDistinct {
			best, bestDistinct = idx, distinct
		}
	}
	return best
}

// findAssetClass tries name aliases, then falls back to any column whose
// values mention CDS or credit.
func findAssetClass(canon []string, claimed map[int]bool, rows [][]string) int {
	if idx := findByAlias(canon, claimed, assetClassExact, assetClassTokens); idx >= 0 {
		return idx
	}
	for i := range canon {
		if claimed[i] {
			continue
		}
		for _, row := range rows {
			if i < len(row) {
				v := strings.ToLower(row[i])
				if strings.Contains(v, "cds") || strings.Contains(v, "credit") {
					return i
				}
			}
		}
	}
	return -1
}

func distinctCount(rows [][]string, idx int) int {
	seen := make(map[string]struct{})
	for _, row := range rows {
		if idx < len(row) && strings.TrimSpace(row[idx]) != "" {
			seen[row[idx]] = struct{}{}
		}
	}
	return len(seen)
}

// firstNumericColumn returns the first unclaimed column where most non-empty
// values coerce to numbers.
func firstNumericColumn(rows [][]string, width int, claimed map[int]bool) int {
	for i := 0; i < width; i++ {
		if claimed[i] {
			continue
		}
		var total, numeric int
		for _, row := range rows {
			if i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			total++
			if _, ok := CoerceNumber(v); ok {
				numeric++
			}
		}
		if total > 0 && numeric*2 > total {
			return i
		}
	}
	return -1
}
