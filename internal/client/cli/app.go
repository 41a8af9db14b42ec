package cli

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/lumora-app/listsync/internal/accounts"
	"github.com/lumora-app/listsync/internal/config"
	"github.com/lumora-app/listsync/internal/listsync"
	"github.com/lumora-app/listsync/internal/logging"
	"github.com/lumora-app/listsync/internal/nostr"
)

// App is the interactive list synchronization client. It owns the account
// registry, the per-list orchestrators and the background refresher, and
// drives them from a REPL.
type App struct {
	config   *config.Config
	log      logging.Logger
	accounts *accounts.Registry
	lists    *listsync.Registry

	// current selects the list the item and folder commands act on.
	current   listsync.Schema[listsync.Contact]
	refresher *listsync.Refresher

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	store, err := listsync.NewSessionStore(c.CacheSize)
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	lists := listsync.NewRegistry(c.DataDir, store, nostr.PoolOptions{
		Timeout:     c.RelayTimeout,
		Concurrency: c.RelayConcurrency,
		PageSize:    c.PageSize,
		MaxPages:    c.MaxPages,
	}, c.CacheTTL, clock, log)

	return &App{
		config:   c,
		log:      log,
		accounts: accounts.NewRegistry(),
		lists:    lists,
		current:  listsync.MuteListSchema(),
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	a.Root(ctx)
	a.stopRefresher()
}

func (a *App) isLoggedIn() bool {
	_, err := a.accounts.Active()
	return err == nil
}

// orchestrator resolves the active account's orchestrator for the currently
// selected list.
func (a *App) orchestrator() (*listsync.Orchestrator[listsync.Contact], error) {
	account, err := a.accounts.Active()
	if err != nil {
		return nil, err
	}
	return listsync.ForSchema(a.lists, account, a.current)
}

// startRefresher launches periodic background syncs of the selected list.
func (a *App) startRefresher(ctx context.Context) {
	a.stopRefresher()
	if a.config.RefreshInterval <= 0 {
		return
	}

	a.refresher = listsync.NewRefresher(a.config.RefreshInterval, clockwork.NewRealClock(), a.log,
		func(ctx context.Context) error {
			o, err := a.orchestrator()
			if err != nil {
				return err
			}
			_, err = o.Sync(ctx, true)
			return err
		})
	a.refresher.Start(ctx)
}

// Pause suspends background refreshes, for example before the machine
// sleeps or goes offline.
func (a *App) Pause() error {
	if a.refresher == nil {
		return nil
	}
	a.refresher.Pause()
	return nil
}

// Resume lifts a Pause.
func (a *App) Resume() error {
	if a.refresher == nil {
		return nil
	}
	a.refresher.Resume()
	return nil
}

func (a *App) stopRefresher() {
	if a.refresher != nil {
		a.refresher.Stop()
		a.refresher = nil
	}
}
