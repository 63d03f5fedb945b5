package main

import (
	"context"

	"github.com/desertthunder/moodlist/internal/repositories"
	"github.com/desertthunder/moodlist/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve starts the HTTP playlist generation API.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host := cmd.String("host")
	port := cmd.Int("port")
	plain := cmd.Bool("plain")
	remote := cmd.Bool("remote")

	if host == "" {
		host = r.config.Server.Host
	}
	if port <= 0 {
		port = r.config.Server.Port
	}

	engine, err := r.moodEngine(ctx, remote, "", plain)
	if err != nil {
		return err
	}

	var interactions *repositories.InteractionRepository
	db, err := r.openDatabase()
	if err != nil {
		r.logger.Warn("database unavailable, interactions will not be recorded", "error", err)
	} else {
		defer db.Close()
		interactions = repositories.NewInteractionRepository(db)
	}

	router := server.NewBasicRouter()
	router.Use(server.Recoverer(r.logger), server.RequestLogger(r.logger))
	router.Handler(server.NewPlaylistHandler(engine, interactions, r.logger))
	router.Handler(&server.HealthHandler{})

	srv := server.NewServer(host, port, router)

	r.logger.Info("starting server", "addr", srv.Addr())
	r.writePlain("Serving on http://%s\n", srv.Addr())

	return srv.ListenAndServe(ctx)
}
