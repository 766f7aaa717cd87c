package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kolpmikel/FinanceApp/internal/model"
	"github.com/kolpmikel/FinanceApp/internal/store"
)

// TxOptions holds the fields accepted by tx create and tx update.
type TxOptions struct {
	*RootOptions
	Amount   string
	Account  int64
	Category int64
	Date     string
	Comment  string
}

// NewTxCommand creates the tx command group.
func NewTxCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "List and change transactions",
	}
	cmd.AddCommand(newTxListCommand(rootOpts))
	cmd.AddCommand(newTxCreateCommand(rootOpts))
	cmd.AddCommand(newTxUpdateCommand(rootOpts))
	cmd.AddCommand(newTxDeleteCommand(rootOpts))
	cmd.AddCommand(newTxImportCommand(rootOpts))
	return cmd
}

func newTxListCommand(rootOpts *RootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions in a period",
		Long: `List transactions in a period, today by default.

When the server is unreachable the list is built from the local store and
the pending changes.

Examples:
  finance tx list
  finance tx list --from 2025-06-01 --to 2025-06-30 --format json`,
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
				return app.Out.SyncFailure("list", err)
			}
			return app.Out.Success(txs, func(w io.Writer) error {
				return writeTransactions(w, txs)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day (YYYY-MM-DD)")
	return cmd
}

func addTxFlags(cmd *cobra.Command, opts *TxOptions) {
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "amount as a non-negative decimal")
	cmd.Flags().Int64Var(&opts.Account, "account", 0, "account id (default: the primary account)")
	cmd.Flags().Int64Var(&opts.Category, "category", 0, "category id")
	cmd.Flags().StringVar(&opts.Date, "date", "", "transaction date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&opts.Comment, "comment", "", "free-text comment")
}

// apply overlays the flags the user set onto tx.
func (o *TxOptions) apply(cmd *cobra.Command, tx *model.Transaction) error {
	flags := cmd.Flags()
	if flags.Changed("amount") {
		amount, err := decimal.NewFromString(o.Amount)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --amount", err)
		}
		tx.Amount = amount
	}
	if flags.Changed("account") {
		tx.AccountID = model.Int64(o.Account)
	}
	if flags.Changed("category") {
		tx.CategoryID = model.Int64(o.Category)
	}
	if flags.Changed("date") {
		date, err := parseDate(o.Date)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --date", err)
		}
		tx.TransactionDate = date
	}
	if flags.Changed("comment") {
		tx.Comment = model.String(o.Comment)
	}
	return nil
}

func newTxCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TxOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a transaction",
		Long: `Create a transaction on the server and mirror it locally.

Example:
  finance tx create --amount 250.75 --category 3 --date 2025-06-03 --comment groceries`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var tx model.Transaction
			if err := opts.apply(cmd, &tx); err != nil {
				return err
			}
			if tx.TransactionDate.IsZero() {
				tx.TransactionDate = model.Today().Start
			}

			app, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if tx.AccountID == nil {
				id, err := app.primaryAccountID(cmd.Context())
				if err != nil {
					return app.Out.SyncFailure("create", err)
				}
				tx.AccountID = model.Int64(id)
			}

			created, err := app.Engines.Transactions.Create(cmd.Context(), tx)
			if err != nil {
				return app.Out.SyncFailure("create", err)
			}
			return app.Out.Success(created, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Created transaction %d\n", created.ID)
				return err
			})
		},
	}

	addTxFlags(cmd, opts)
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newTxUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TxOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a transaction",
		Long: `Change fields of a stored transaction. Fields without a flag keep their
local value.

Example:
  finance tx update 42 --amount 300`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			app, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			tx, err := app.Store.GetTransaction(cmd.Context(), id)
			if errors.Is(err, store.ErrNotFound) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("transaction %d is not stored locally; run tx list first", id), err)
			}
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read transaction", err)
			}
			if err := opts.apply(cmd, &tx); err != nil {
				return err
			}

			updated, err := app.Engines.Transactions.Update(cmd.Context(), tx)
			if err != nil {
				return app.Out.SyncFailure("update", err)
			}
			return app.Out.Success(updated, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Updated transaction %d\n", updated.ID)
				return err
			})
		},
	}

	addTxFlags(cmd, opts)
	return cmd
}

func newTxDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			app, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Engines.Transactions.Delete(cmd.Context(), id); err != nil {
				return app.Out.SyncFailure("delete", err)
			}
			return app.Out.Success(map[string]int64{"deleted": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deleted transaction %d\n", id)
				return err
			})
		},
	}
}

// ImportResult reports a CSV import.
type ImportResult struct {
	Created []int64  `json:"created"`
	Failed  []string `json:"failed,omitempty"`
}

func newTxImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create transactions from a CSV export",
		Long: `Create every row of a CSV file as a new transaction. The file uses the
export header; ids in the file are ignored and the server assigns new ones.
Rows without an account go to the primary account.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open csv", err)
			}
			defer f.Close()

			txs, err := model.ReadCSV(f)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to parse csv", err)
			}

			app, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			result := ImportResult{Created: []int64{}}
			var primary int64
			for i, tx := range txs {
				tx.ID = 0
				if tx.AccountID == nil {
					if primary == 0 {
						if primary, err = app.primaryAccountID(cmd.Context()); err != nil {
							return app.Out.SyncFailure("import", err)
						}
					}
					tx.AccountID = model.Int64(primary)
				}
				created, err := app.Engines.Transactions.Create(cmd.Context(), tx)
				if err != nil {
					app.Out.VerboseLog("row %d: %v", i+1, err)
					result.Failed = append(result.Failed, fmt.Sprintf("row %d: %s", i+1, err))
					continue
				}
				result.Created = append(result.Created, created.ID)
			}

			if err := app.Out.Success(result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Imported %d of %d transactions\n", len(result.Created), len(txs))
				return err
			}); err != nil {
				return err
			}
			if len(result.Failed) > 0 {
				return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d row(s) failed", len(result.Failed)), Reported: true}
			}
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q", s))
	}
	return id, nil
}

func writeTransactions(w io.Writer, txs []model.Transaction) error {
	if len(txs) == 0 {
		_, err := fmt.Fprintln(w, "No transactions.")
		return err
	}
	rows := make([][]string, len(txs))
	for i, tx := range txs {
		rows[i] = []string{
			strconv.FormatInt(tx.ID, 10),
			tx.TransactionDate.Format("2006-01-02 15:04"),
			tx.Amount.StringFixed(2),
			optionalInt(tx.CategoryID),
			optionalString(tx.Comment),
		}
	}
	return writeTable(w, []string{"ID", "DATE", "AMOUNT", "CATEGORY", "COMMENT"}, rows)
}

func optionalInt(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func optionalString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
