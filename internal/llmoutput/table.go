package llmoutput

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TableRows flattens an extracted HTML table into the text of its cells, one
// slice per <tr>. Header cells (<th>) and data cells (<td>) are treated alike.
// An empty input yields no rows.
func TableRows(tableHTML string) ([][]string, error) {
	if strings.TrimSpace(tableHTML) == "" {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tableHTML))
	if err != nil {
		return nil, fmt.Errorf("parse table html: %w", err)
	}

	var rows [][]string
	doc.Find("table").First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows, nil
}
