package cli

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// NewAccountCommand creates the account command group.
func NewAccountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Show or change the primary account",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the primary account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			account, err := app.Engines.Accounts.FetchPrimary(cmd.Context())
			if err != nil {
				return app.Out.SyncFailure("account", err)
			}
			return app.Out.Success(account, func(w io.Writer) error {
				return writeAccount(w, account)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-balance <amount>",
		Short: "Set the balance of the primary account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := decimal.NewFromString(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid amount", err)
			}

			app, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			account, err := app.Engines.Accounts.FetchPrimary(cmd.Context())
			if err != nil {
				return app.Out.SyncFailure("account", err)
			}
			account.Balance = balance
			updated, err := app.Engines.Accounts.Update(cmd.Context(), account)
			if err != nil {
				return app.Out.SyncFailure("set-balance", err)
			}
			return app.Out.Success(updated, func(w io.Writer) error {
				return writeAccount(w, updated)
			})
		},
	})
	return cmd
}

func writeAccount(w io.Writer, a model.BankAccount) error {
	_, err := fmt.Fprintf(w, "%s (#%d)\nBalance: %s %s\n", a.Name, a.ID, a.Balance.StringFixed(2), a.Currency)
	return err
}
