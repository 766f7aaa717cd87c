package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the category catalog",
		Long: `List the category catalog. The catalog is refreshed from the server and
cached locally; the cache answers while offline.

Examples:
  finance categories
  finance categories --direction income`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir model.Direction
			if direction != "" {
				var err error
				if dir, err = model.ParseDirection(direction); err != nil {
					return WrapExitError(ExitCommandError, "invalid --direction", err)
				}
			}

			app, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			var cats []model.Category
			if dir == "" {
				cats, err = app.Engines.Categories.FetchAll(cmd.Context())
			} else {
				cats, err = app.Engines.Categories.FetchByDirection(cmd.Context(), dir)
			}
			if err != nil {
				return app.Out.SyncFailure("categories", err)
			}
			return app.Out.Success(cats, func(w io.Writer) error {
				rows := make([][]string, len(cats))
				for i, c := range cats {
					rows[i] = []string{strconv.FormatInt(c.ID, 10), c.Emoji, c.Name, string(c.Direction)}
				}
				return writeTable(w, []string{"ID", "", "NAME", "DIRECTION"}, rows)
			})
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "", "only income or outcome categories")
	return cmd
}
