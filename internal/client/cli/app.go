// Package cli is the terminal front end: a small REPL that issues intents
// against the session store and the list-sync controller and renders the
// canonical transaction list they maintain.
package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"

	"github.com/vpetrenko/tracklet/internal/client/api"
	"github.com/vpetrenko/tracklet/internal/client/config"
	"github.com/vpetrenko/tracklet/internal/client/listsync"
	"github.com/vpetrenko/tracklet/internal/client/session"
	"github.com/vpetrenko/tracklet/internal/logging"
)

type App struct {
	config     *config.Config
	store      *session.Store
	controller *listsync.Controller
	client     api.Client
	log        logging.Logger
	reader     *bufio.Reader
}

// NewApp wires the client stack together: local database, session store,
// HTTP client (with the store as its token source), and list controller.
// A persisted session is restored before the first prompt.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.NewDefault(slog.LevelWarn)

	db, err := session.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, err
	}

	store := session.NewStore(db, log)
	apiClient := api.NewHTTPClient(c.BaseURL, c.RequestTimeout, store, log)
	store.SetClient(apiClient)

	if err := store.Restore(ctx); err != nil {
		return nil, err
	}

	controller := listsync.NewController(apiClient, store, log)

	return &App{
		config:     c,
		store:      store,
		controller: controller,
		client:     apiClient,
		log:        log,
		reader:     bufio.NewReader(os.Stdin),
	}, nil
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.client.Close()
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) isLoggedIn() bool {
	return a.store.IsAuthenticated()
}

func (a *App) status() string {
	if user := a.store.User(); user != nil {
		return user.Username
	}
	return "anonymous"
}
