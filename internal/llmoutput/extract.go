// internal/llmoutput/extract.go

// Package llmoutput scrapes the loosely structured text an LLM returns for a
// prediction request: a fenced csv block, an HTML table and a trailing
// explanation section.
package llmoutput

import (
	"encoding/csv"
	"regexp"
	"strings"
)

// Row-count bounds for a usable prediction CSV, header included. A header
// plus at most 120 data rows.
const (
	MinPlausibleRows = 2
	MaxPlausibleRows = 121
)

var (
	csvBlockPattern   = regexp.MustCompile("(?s)```csv(.*?)```")
	tablePattern      = regexp.MustCompile(`(?is)<table.*?</table>`)
	explanationMarker = regexp.MustCompile(`(?is)Explanations?:(.*)`)
)

// Result is the outcome of scraping one raw model response. Fields are empty
// when their pattern does not occur.
type Result struct {
	PredictionCSV  string `json:"predictionCsv"`
	TableHTML      string `json:"tableHtml"`
	Explanations   string `json:"explanations"`
	IsCSVPlausible bool   `json:"isCsvPlausible"`
}

// Rows tokenizes PredictionCSV the same way the plausibility check does.
func (r Result) Rows() [][]string {
	return tokenize(r.PredictionCSV)
}

// RowCount is len(Rows()).
func (r Result) RowCount() int {
	return len(r.Rows())
}

// Extractor turns a complete model response into a Result.
type Extractor interface {
	Extract(raw string) Result
}

// RegexpExtractor is the default Extractor. The zero value is ready to use.
type RegexpExtractor struct{}

// Extract implements Extractor.
func (RegexpExtractor) Extract(raw string) Result {
	return Extract(raw)
}

// Extract never fails; callers must pass the full response text.
func Extract(raw string) Result {
	res := Result{
		PredictionCSV: extractCSV(raw),
		TableHTML:     tablePattern.FindString(raw),
		Explanations:  extractExplanations(raw),
	}
	res.IsCSVPlausible = IsPlausibleRowCount(len(tokenize(res.PredictionCSV)))
	return res
}

// IsPlausibleRowCount reports whether n rows (header included) fall inside
// [MinPlausibleRows, MaxPlausibleRows].
func IsPlausibleRowCount(n int) bool {
	return n >= MinPlausibleRows && n <= MaxPlausibleRows
}

func extractCSV(raw string) string {
	m := csvBlockPattern.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func extractExplanations(raw string) string {
	m := explanationMarker.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// tokenize reads every record it can; on a hard parse error the rows read so
// far are kept.
func tokenize(text string) [][]string {
	if text == "" {
		return nil
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			// io.EOF or a malformed record; both end the scan
			break
		}
		if isBlank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return rows
}

func isBlank(rec []string) bool {
	for _, cell := range rec {
		if cell != "" {
			return false
		}
	}
	return true
}
