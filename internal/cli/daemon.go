package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/kolpmikel/FinanceApp/internal/config"
	"github.com/kolpmikel/FinanceApp/internal/engine"
)

// NewDaemonCommand creates the daemon command.
func NewDaemonCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Replay pending changes on a schedule",
		Long: `Keep the engines running and replay the queue on a cron schedule until
interrupted. The schedule accepts standard 5-field cron expressions and
descriptors such as @hourly or @every 30s.

Examples:
  finance daemon
  finance daemon --schedule "*/5 * * * *"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, rootOpts)
		},
	}

	cmd.Flags().String("schedule", config.DefaultSchedule, "cron schedule for sync passes")
	_ = rootOpts.Viper.BindPFlag(config.KeySchedule, cmd.Flags().Lookup("schedule"))
	return cmd
}

func runDaemon(cmd *cobra.Command, rootOpts *RootOptions) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	app, err := openApp(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer app.Close()

	cronLog := cron.PrintfLogger(slog.NewLogLogger(app.Logger.Handler(), slog.LevelDebug))
	c := cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.SkipIfStillRunning(cronLog)))

	pass := func() {
		result, err := app.Engines.Transactions.Sync(ctx)
		if err != nil {
			app.Logger.Error("sync pass failed", "code", engine.CodeOf(err), "error", err)
			return
		}
		report := newSyncReport(result)
		app.Logger.Info("sync pass", "synced", report.Synced, "stale", report.Stale, "pending", report.Pending)
		app.Out.VerboseLog("synced %d, stale %d, pending %d", report.Synced, report.Stale, report.Pending)
	}

	schedule := rootOpts.Config.Schedule
	if _, err := c.AddFunc(schedule, pass); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid schedule %q", schedule), err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			app.Logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	app.Logger.Info("daemon starting", "db", rootOpts.Config.DBPath, "schedule", schedule)
	fmt.Fprintf(cmd.OutOrStdout(), "Syncing on schedule %q. Press Ctrl-C to stop.\n", schedule)

	pass()
	c.Start()
	<-ctx.Done()

	// Wait for a running pass before the store closes.
	<-c.Stop().Done()
	app.Logger.Info("daemon stopped")
	return nil
}
