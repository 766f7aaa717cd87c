package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/kolpmikel/FinanceApp/internal/engine"
	"github.com/kolpmikel/FinanceApp/internal/model"
	"github.com/kolpmikel/FinanceApp/internal/remote"
	"github.com/kolpmikel/FinanceApp/internal/store"
)

// App is one CLI invocation's wiring: the local store, the API client and
// the running engines.
type App struct {
	Logger  *slog.Logger
	Store   *store.Store
	Remote  *remote.Client
	Engines *engine.Engines
	Out     *OutputFormatter

	stop     func()
	closeLog io.Closer
}

// openApp opens the store and starts the engines. Callers must Close it.
func openApp(cmd *cobra.Command, opts *RootOptions) (*App, error) {
	cfg := opts.Config
	logger, closeLog := newLogger(cfg, cmd.ErrOrStderr())

	client, err := remote.New(cfg.APIURL,
		remote.WithToken(cfg.Token),
		remote.WithTimeout(cfg.Timeout),
		remote.WithLogger(logger),
	)
	if err != nil {
		closeLog.Close()
		return nil, WrapExitError(ExitCommandError, "invalid api url", err)
	}

	logger.Debug("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		closeLog.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	engines := engine.New(client, st, engine.WithLogger(logger))
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return &App{
		Logger:   logger,
		Store:    st,
		Remote:   client,
		Engines:  engines,
		Out:      opts.Formatter(cmd),
		stop:     engines.Start(ctx),
		closeLog: closeLog,
	}, nil
}

// Close stops the engines and closes the store and the log file.
func (a *App) Close() {
	a.stop()
	if err := a.Store.Close(); err != nil {
		a.Logger.Error("error closing database", "error", err)
	}
	_ = a.closeLog.Close()
}

// primaryAccountID returns the id of the primary account, preferring the
// local copy.
func (a *App) primaryAccountID(ctx context.Context) (int64, error) {
	account, err := a.Engines.Accounts.FetchPrimary(ctx)
	if err != nil {
		return 0, err
	}
	return account.ID, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(s string) (time.Time, error) {
	t, err := model.ParseTime(s)
	if err != nil {
		return time.Time{}, err
	}
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("date is required")
	}
	return t, nil
}

// periodFlags resolves --from/--to into an interval. Both are whole days;
// missing bounds default to today.
func periodFlags(from, to string) (model.Interval, error) {
	today := model.Today()
	interval := today
	if from != "" {
		t, err := parseDate(from)
		if err != nil {
			return model.Interval{}, WrapExitError(ExitCommandError, "invalid --from", err)
		}
		interval.Start = model.Day(t).Start
	}
	if to != "" {
		t, err := parseDate(to)
		if err != nil {
			return model.Interval{}, WrapExitError(ExitCommandError, "invalid --to", err)
		}
		interval.End = model.Day(t).End
	} else if from != "" && interval.Start.After(today.End) {
		interval.End = model.Day(interval.Start).End
	}
	if interval.End.Before(interval.Start) {
		return model.Interval{}, NewExitError(ExitCommandError, "--to is before --from")
	}
	return interval, nil
}
