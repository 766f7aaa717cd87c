package engine

import "context"

// Engines bundles the three sync engines over one session and one backup queue.
type Engines struct {
	Session      *Session
	Replayer     *Replayer
	Transactions *SyncEngine
	Accounts     *AccountSyncEngine
	Categories   *CategorySyncEngine
}

// New wires every engine onto a fresh session. Start it with Start or Session.Run.
func New(remote RemoteService, local LocalStore, opts ...Option) *Engines {
	session := NewSession(opts...)
	replayer := NewReplayer(remote, remote, local, local, local, session.logger)
	return &Engines{
		Session:      session,
		Replayer:     replayer,
		Transactions: NewSyncEngine(session, remote, local, local, replayer),
		Accounts:     NewAccountSyncEngine(session, remote, local, local),
		Categories:   NewCategorySyncEngine(session, remote, local),
	}
}

// Start runs the session in a new goroutine. The returned stop function
// closes the session and waits for the loop to exit.
func (e *Engines) Start(ctx context.Context) (stop func()) {
	go func() {
		_ = e.Session.Run(ctx)
	}()
	return func() {
		e.Session.Stop()
		<-e.Session.Done()
	}
}
