// Package app wires the application together: the interactive report client
// on one side and the report backend on the other.
package app

import (
	"context"
	"fmt"

	"codereport/internal/client"
	"codereport/internal/elaborate"
	"codereport/internal/gitsource"
	"codereport/internal/identity"
	"codereport/internal/model"
	"codereport/internal/render"
	"codereport/internal/server"
	"codereport/internal/ui"
	"codereport/internal/workflow"

	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
)

// App is the top-level application.
type App struct {
	cfg Config
	log logze.Logger
}

// New creates the application.
func New(cfg Config) *App {
	return &App{
		cfg: cfg,
		log: logze.With("module", "app"),
	}
}

// RunReport starts the interactive report workflow. It requires a cached
// identity: the token is re-validated against the backend and the username
// it resolves to replaces the cached one before the workflow starts.
func (a *App) RunReport(ctx context.Context) error {
	cache := identity.New()

	token, ok := cache.Token()
	if !ok {
		return errm.Wrap(model.ErrUnauthenticated, "run `codereport login <token>` first")
	}

	backend, err := client.New(a.cfg.Client)
	if err != nil {
		return errm.Wrap(err, "create backend client")
	}

	user, err := backend.Status(ctx, token)
	if err != nil {
		// The token is no longer good; drop the stale identity so the next
		// run asks for a fresh login instead of failing the same way.
		if clearErr := cache.ClearToken(); clearErr != nil {
			a.log.Error("failed to clear stale identity", "error", clearErr)
		}
		return errm.Wrap(err, "token validation failed, please log in again")
	}
	if err := cache.SetUsername(user.Username); err != nil {
		return errm.Wrap(err, "cache username")
	}

	renderer, err := render.New(a.cfg.Export)
	if err != nil {
		return errm.Wrap(err, "create renderer")
	}

	wf := workflow.New(backend, backend, cache)

	return ui.New(wf, renderer, user.Username).Run(ctx)
}

// RunServe starts the report backend and blocks until shutdown.
func (a *App) RunServe(ctx contem.Context) error {
	source, err := gitsource.New(a.cfg.Source)
	if err != nil {
		return errm.Wrap(err, "create GitHub source")
	}
	ctx.Add(func(context.Context) error {
		source.Close()
		return nil
	})

	agent, err := elaborate.New(ctx, a.cfg.Agent)
	if err != nil {
		return errm.Wrap(err, "create elaboration agent")
	}

	srv, err := server.New(a.cfg.Server, source, agent)
	if err != nil {
		return errm.Wrap(err, "create server")
	}
	ctx.Add(srv.Stop)

	if err := srv.Start(ctx); err != nil {
		return errm.Wrap(err, "start server")
	}

	a.log.Info("report server started", "address", a.cfg.Server.Address)

	<-ctx.Done()
	return nil
}

// RunLogin validates the token obtained from the OAuth redirect, then caches
// it together with the username it belongs to.
func (a *App) RunLogin(ctx context.Context, token string) error {
	backend, err := client.New(a.cfg.Client)
	if err != nil {
		return errm.Wrap(err, "create backend client")
	}

	user, err := backend.Status(ctx, token)
	if err != nil {
		return errm.Wrap(err, "token is not valid")
	}

	cache := identity.New()
	if err := cache.SetToken(token); err != nil {
		return errm.Wrap(err, "store token")
	}
	if err := cache.SetUsername(user.Username); err != nil {
		return errm.Wrap(err, "store username")
	}

	fmt.Printf("Logged in as %s\n", user.Username)
	return nil
}

// RunLogout destroys the cached identity.
func (a *App) RunLogout() error {
	if err := identity.New().ClearToken(); err != nil {
		return errm.Wrap(err, "clear identity")
	}
	fmt.Println("Logged out")
	return nil
}
