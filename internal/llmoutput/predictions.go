package llmoutput

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ExpectedHeader is the header the prompt asks the model to emit. It is a
// convention only; nothing rejects a CSV that uses another header.
var ExpectedHeader = []string{"symbol", "month", "predicted_price"}

// Prediction is one (ticker, month) row of a well-formed prediction CSV.
type Prediction struct {
	Symbol string          `json:"symbol"`
	Month  string          `json:"month"`
	Price  decimal.Decimal `json:"predictedPrice"`
}

// PredictionSet is the typed view of the CSV rows.
type PredictionSet struct {
	Predictions []Prediction `json:"predictions"`
	// Skipped counts data rows that were too short or had an unparseable price.
	Skipped int `json:"skipped"`
	// HeaderMatched is false when the first row differs from ExpectedHeader.
	HeaderMatched bool `json:"headerMatched"`
}

// ParsePredictions maps rows (header first) onto Prediction values. Columns
// are located by header name when the header matches; otherwise the first
// three columns are assumed to be symbol, month and price.
func ParsePredictions(rows [][]string) PredictionSet {
	var set PredictionSet
	if len(rows) == 0 {
		return set
	}

	symbolIdx, monthIdx, priceIdx := 0, 1, 2
	header := normalizeHeader(rows[0])
	if idx, ok := headerIndexes(header); ok {
		set.HeaderMatched = true
		symbolIdx, monthIdx, priceIdx = idx[0], idx[1], idx[2]
	}

	for _, row := range rows[1:] {
		if len(row) <= symbolIdx || len(row) <= monthIdx || len(row) <= priceIdx {
			set.Skipped++
			continue
		}
		price, err := decimal.NewFromString(cleanPrice(row[priceIdx]))
		if err != nil {
			set.Skipped++
			continue
		}
		set.Predictions = append(set.Predictions, Prediction{
			Symbol: strings.ToUpper(strings.TrimSpace(row[symbolIdx])),
			Month:  strings.TrimSpace(row[monthIdx]),
			Price:  price,
		})
	}
	return set
}

func normalizeHeader(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = strings.ToLower(strings.TrimSpace(cell))
	}
	return out
}

func headerIndexes(header []string) ([3]int, bool) {
	var idx [3]int
	for i, want := range ExpectedHeader {
		found := -1
		for j, got := range header {
			if got == want {
				found = j
				break
			}
		}
		if found < 0 {
			return idx, false
		}
		idx[i] = found
	}
	return idx, true
}

// cleanPrice strips a leading currency sign and thousands separators, both of
// which models like to add.
func cleanPrice(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	return strings.ReplaceAll(s, ",", "")
}
