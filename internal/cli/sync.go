package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kolpmikel/FinanceApp/internal/engine"
	"github.com/kolpmikel/FinanceApp/internal/model"
)

// SyncReport is the outcome of one replay pass.
type SyncReport struct {
	Synced  int      `json:"synced"`
	Stale   int      `json:"stale"`
	Pending int      `json:"pending"`
	Errors  []string `json:"errors,omitempty"`
}

func newSyncReport(result engine.ReplayResult) SyncReport {
	report := SyncReport{
		Synced:  result.Count(engine.OutcomeSynced),
		Stale:   result.Count(engine.OutcomeStale),
		Pending: result.Count(engine.OutcomePending),
	}
	for _, e := range result.Entries {
		if e.Err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s/%d %s: %s", e.Kind, e.ID, e.Action, engine.UserMessage(e.Err)))
		}
	}
	return report
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay pending changes to the server",
		Long: `Replay every queued change once. Entries that still fail stay queued.

Exit codes:
  0 - The queue is empty
  1 - Entries remain queued`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Engines.Transactions.Sync(cmd.Context())
			if err != nil {
				return app.Out.SyncFailure("sync", err)
			}
			report := newSyncReport(result)
			if err := app.Out.Success(report, func(w io.Writer) error {
				fmt.Fprintf(w, "Synced %d, dropped %d stale, %d still pending\n", report.Synced, report.Stale, report.Pending)
				for _, e := range report.Errors {
					fmt.Fprintf(w, "  %s\n", e)
				}
				return nil
			}); err != nil {
				return err
			}
			if report.Pending > 0 {
				return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d change(s) still pending", report.Pending), Reported: true}
			}
			return nil
		},
	}
}

// QueueEntry is a pending operation as shown by the queue command.
type QueueEntry struct {
	Kind     model.Kind   `json:"kind"`
	ID       int64        `json:"id"`
	Action   model.Action `json:"action"`
	QueuedAt string       `json:"queued_at"`
}

// NewQueueCommand creates the queue command.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "List changes waiting to be replayed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			ops, err := app.Store.ListAll(cmd.Context())
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read queue", err)
			}
			entries := make([]QueueEntry, len(ops))
			for i, op := range ops {
				entries[i] = QueueEntry{Kind: op.Kind, ID: op.ID, Action: op.Action, QueuedAt: model.FormatTime(op.QueuedAt)}
			}
			return app.Out.Success(entries, func(w io.Writer) error {
				if len(entries) == 0 {
					_, err := fmt.Fprintln(w, "Queue is empty.")
					return err
				}
				rows := make([][]string, len(entries))
				for i, e := range entries {
					rows[i] = []string{string(e.Kind), strconv.FormatInt(e.ID, 10), string(e.Action), e.QueuedAt}
				}
				return writeTable(w, []string{"KIND", "ID", "ACTION", "QUEUED AT"}, rows)
			})
		},
	}
}
