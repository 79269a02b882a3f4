package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"llm-stock-prediction/internal/llmoutput"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	okStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#10B981"))

	badStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#EF4444"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract the CSV, table and explanations from a saved model response",
		Long: `Run the response extractor on a saved model reply and print the CSV rows
with the plausibility flag. Use "-" to read from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")

			result := llmoutput.Extract(raw)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					llmoutput.Result
					Rows     [][]string `json:"rows"`
					RowCount int        `json:"rowCount"`
				}{result, result.Rows(), result.RowCount()})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderResult(result))
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "Print the extraction result as JSON")
	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(b), nil
}

func renderResult(result llmoutput.Result) string {
	var sb strings.Builder
	rows := result.Rows()

	sb.WriteString(titleStyle.Render("Prediction CSV"))
	sb.WriteString("\n")
	if len(rows) == 0 {
		sb.WriteString(mutedStyle.Render("(no csv block found)"))
		sb.WriteString("\n")
	} else {
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(mutedStyle).
			Headers(rows[0]...).
			Rows(rows[1:]...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		sb.WriteString(t.String())
		sb.WriteString("\n")
	}

	flag := okStyle.Render("plausible")
	if !result.IsCSVPlausible {
		flag = badStyle.Render("implausible")
	}
	fmt.Fprintf(&sb, "Rows: %d (accepted %d-%d) %s\n", len(rows),
		llmoutput.MinPlausibleRows, llmoutput.MaxPlausibleRows, flag)

	if result.TableHTML != "" {
		tableRows, err := llmoutput.TableRows(result.TableHTML)
		if err == nil {
			fmt.Fprintf(&sb, "HTML table: %d rows\n", len(tableRows))
		}
	}
	if result.Explanations != "" {
		sb.WriteString("\n")
		sb.WriteString(titleStyle.Render("Explanations"))
		sb.WriteString("\n")
		sb.WriteString(result.Explanations)
		sb.WriteString("\n")
	}
	return sb.String()
}
