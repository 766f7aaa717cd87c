package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// SummaryReport is the JSON shape of the summary command.
type SummaryReport struct {
	From          string            `json:"from"`
	To            string            `json:"to"`
	Income        string            `json:"income"`
	Outcome       string            `json:"outcome"`
	Net           string            `json:"net"`
	Uncategorized string            `json:"uncategorized"`
	Categories    []CategoryReport `json:"categories"`
}

// CategoryReport is one category line of a summary.
type CategoryReport struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	Direction string `json:"direction"`
	Total     string `json:"total"`
	Count     int    `json:"count"`
	Share     string `json:"share"` // percent of the direction total
}

func newSummaryReport(interval model.Interval, s model.Summary) SummaryReport {
	report := SummaryReport{
		From:          model.FormatTime(interval.Start),
		To:            model.FormatTime(interval.End),
		Income:        s.Income.StringFixed(2),
		Outcome:       s.Outcome.StringFixed(2),
		Net:           s.Net.StringFixed(2),
		Uncategorized: s.Uncategorized.StringFixed(2),
		Categories:    make([]CategoryReport, len(s.Categories)),
	}
	for i, ct := range s.Categories {
		total := s.Outcome
		if ct.Direction.IsIncome() {
			total = s.Income
		}
		report.Categories[i] = CategoryReport{
			ID:        ct.CategoryID,
			Name:      ct.Name,
			Emoji:     ct.Emoji,
			Direction: string(ct.Direction),
			Total:     ct.Total.StringFixed(2),
			Count:     ct.Count,
			Share:     ct.Share(total).StringFixed(2),
		}
	}
	return report
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Totals per direction and category for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, err := periodFlags(from, to)
			if err != nil {
				return err
			}
			app, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			txs, err := app.Engines.Transactions.FetchTransactions(cmd.Context(), interval)
			if err != nil {
				return app.Out.SyncFailure("summary", err)
			}
			cats, err := app.Engines.Categories.FetchAll(cmd.Context())
			if err != nil {
				return app.Out.SyncFailure("summary", err)
			}

			report := newSummaryReport(interval, model.Summarize(txs, cats))
			return app.Out.Success(report, func(w io.Writer) error {
				fmt.Fprintf(w, "Income:  %s\nOutcome: %s\nNet:     %s\n", report.Income, report.Outcome, report.Net)
				if report.Uncategorized != "0.00" {
					fmt.Fprintf(w, "Uncategorized: %s\n", report.Uncategorized)
				}
				if len(report.Categories) == 0 {
					return nil
				}
				fmt.Fprintln(w)
				rows := make([][]string, len(report.Categories))
				for i, c := range report.Categories {
					rows[i] = []string{c.Emoji + " " + c.Name, c.Direction, c.Total, strconv.Itoa(c.Count), c.Share + "%"}
				}
				return writeTable(w, []string{"CATEGORY", "DIRECTION", "TOTAL", "COUNT", "SHARE"}, rows)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day (YYYY-MM-DD)")
	return cmd
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var from, to, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write transactions of a period as CSV",
		Long: `Write transactions of a period as CSV, to stdout or --out.
The file can be read back with tx import.

Example:
  finance export --from 2025-06-01 --to 2025-06-30 --out june.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, err := periodFlags(from, to)
			if err != nil {
				return err
			}
			app, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			txs, err := app.Engines.Transactions.FetchTransactions(cmd.Context(), interval)
			if err != nil {
				return app.Out.SyncFailure("export", err)
			}

			if out == "" {
				return model.WriteCSV(cmd.OutOrStdout(), txs)
			}
			f, err := os.Create(out)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to create output file", err)
			}
			if err := model.WriteCSV(f, txs); err != nil {
				f.Close()
				return WrapExitError(ExitFailure, "failed to write csv", err)
			}
			if err := f.Close(); err != nil {
				return WrapExitError(ExitFailure, "failed to write csv", err)
			}
			app.Out.VerboseLog("wrote %d transactions to %s", len(txs), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
