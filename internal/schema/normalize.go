package schema

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Normalize parses a raw day payload as delimited text and maps its rows
// onto canonical records. Strict parsing is tried first; on failure the
// payload is re-parsed leniently, skipping malformed rows instead of
// aborting the day.
func Normalize(payload []byte) ([]Record, error) {
	header, rows, err := parseStrict(payload)
	if err != nil {
		zap.L().Debug("schema: strict parse failed, retrying lenient", zap.Error(err))
		header, rows, err = parseLenient(payload)
		if err != nil {
			return nil, eris.Wrap(err, "schema: payload unparseable")
		}
	}
	if len(header) == 0 {
		return nil, eris.New("schema: payload has no header row")
	}

	cm := resolveColumns(header, rows)

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		records = append(records, Record{
			RowIndex:      i,
			Entity:        cell(row, cm.entity),
			AssetClass:    cell(row, cm.assetClass),
			Currency:      cell(row, cm.currency),
			Tenor:         cell(row, cm.tenor),
			EffectiveDate: cell(row, cm.effective),
			MaturityDate:  cell(row, cm.maturity),
			Price:         cell(row, cm.price),
			PriceUnit:     cell(row, cm.priceUnit),
			Spread:        cell(row, cm.spread),
			Coupon:        cell(row, cm.coupon),
			Notional:      cell(row, cm.notional),
		})
	}
	return records, nil
}

func cell(row []string, idx int) Field {
	if idx < 0 || idx >= len(row) {
		return None()
	}
	v := strings.TrimSpace(row[idx])
	if v == "" {
		return None()
	}
	return Some(v)
}

func parseStrict(payload []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(payload))
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, nil, errors.New("empty table")
	}
	return trimmed(all[0]), all[1:], nil
}

// parseLenient tolerates ragged quoting and variable field counts, dropping
// rows the reader cannot recover.
func parseLenient(payload []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(payload))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var header []string
	var rows [][]string
	skipped := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			// A bare parse error on one row; the reader resumes on the
			// next line. Give up if nothing is recoverable at all.
			if skipped > 10000 {
				return nil, nil, errors.New("too many malformed rows")
			}
			continue
		}
		if header == nil {
			header = trimmed(row)
			continue
		}
		rows = append(rows, row)
	}
	if header == nil {
		return nil, nil, errors.New("no parseable rows")
	}
	if skipped > 0 {
		zap.L().Debug("schema: lenient parse skipped rows", zap.Int("skipped", skipped))
	}
	return header, rows, nil
}

func trimmed(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

// CoerceNumber parses a numeric cell, tolerating thousands separators.
// Non-finite values are rejected.
func CoerceNumber(s string) (float64, bool) {
	v := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// DetectUnit classifies a unit/type-like cell as basis points or percent.
func DetectUnit(s string) PriceUnitKind {
	v := strings.ToLower(s)
	switch {
	case strings.Contains(v, "bps"), strings.Contains(v, "bp"), strings.Contains(v, "basis"):
		return UnitBps
	case strings.Contains(v, "%"), strings.Contains(v, "percent"), strings.Contains(v, "pct"):
		return UnitPercent
	default:
		return UnitUnknown
	}
}

// FractionToBps converts an unambiguous decimal fraction to basis points:
// a value in [0,1) is read as a proportional coupon (0.05 -> 500 bps).
// Anything else is not safely convertible and is refused.
func FractionToBps(v float64) (float64, bool) {
	if v >= 0 && v < 1 {
		return v * 10000, true
	}
	return 0, false
}
