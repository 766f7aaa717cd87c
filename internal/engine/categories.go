package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kolpmikel/FinanceApp/internal/model"
)

// CategorySyncEngine keeps the category catalog in sync. The catalog is
// always replaced as a whole.
type CategorySyncEngine struct {
	session *Session
	remote  CategoryRemote
	local   CategoryStore
	logger  *slog.Logger
}

// NewCategorySyncEngine wires a category engine onto session.
func NewCategorySyncEngine(session *Session, remote CategoryRemote, local CategoryStore) *CategorySyncEngine {
	return &CategorySyncEngine{
		session: session,
		remote:  remote,
		local:   local,
		logger:  session.logger,
	}
}

// FetchAll returns the remote catalog and stores it locally. When the remote
// fails the local catalog is returned; an empty or unreadable local catalog
// surfaces the remote error.
func (e *CategorySyncEngine) FetchAll(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	err := e.session.do(ctx, "categories", func(ctx context.Context) error {
		remote, remoteErr := e.remote.FetchCategories(ctx)
		if remoteErr == nil {
			if err := e.local.ReplaceCategories(ctx, remote); err != nil {
				e.logger.Warn("storing categories failed", "count", len(remote), "error", err)
			}
			cats = remote
			return nil
		}

		e.logger.Warn("remote categories failed, using local catalog", "error", remoteErr)
		local, err := e.local.Categories(ctx)
		if err != nil || len(local) == 0 {
			return &SyncError{Code: Classify(remoteErr, CodeRemoteUnavailable), Op: "fetch categories", Err: errors.Join(remoteErr, err)}
		}
		cats = local
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cats, nil
}

// FetchByDirection returns the income or outcome categories from the
// server's per-direction endpoint. The answer is partial, so it never
// replaces the local catalog. When the remote fails the local catalog is
// filtered instead.
func (e *CategorySyncEngine) FetchByDirection(ctx context.Context, dir model.Direction) ([]model.Category, error) {
	var cats []model.Category
	err := e.session.do(ctx, "categories by direction", func(ctx context.Context) error {
		remote, remoteErr := e.remote.FetchCategoriesByDirection(ctx, dir)
		if remoteErr == nil {
			cats = remote
			return nil
		}

		e.logger.Warn("remote categories failed, filtering local catalog", "direction", dir, "error", remoteErr)
		local, err := e.local.Categories(ctx)
		if err != nil || len(local) == 0 {
			return &SyncError{Code: Classify(remoteErr, CodeRemoteUnavailable), Op: "fetch categories", Err: errors.Join(remoteErr, err)}
		}
		cats = model.FilterCategories(local, dir)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cats, nil
}
