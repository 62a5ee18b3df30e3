package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/flightsearch/flights/mockapi"
	"github.com/kbukum/flightsearch/observability"
	"github.com/kbukum/flightsearch/search"
	"github.com/kbukum/flightsearch/searchapi"
	"github.com/kbukum/flightsearch/server"
	"github.com/kbukum/flightsearch/sse"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the mock flights API and the search endpoints",
		Long: "Serve the mock flights API together with GET /search and GET /search/stream.\n" +
			"Searches price against api.base_url, which defaults to this server.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Server
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			ctx := cmd.Context()
			hub := sse.NewHub()
			srv, err := newMockServer(a, cfg, hub)
			if err != nil {
				return err
			}
			if err := srv.Listen(ctx); err != nil {
				return err
			}
			api := a.cfg.API
			if a.cfg.apiSelf {
				api.BaseURL = srv.URL()
			}
			tickets, prices, err := newFetchers(a, api)
			if err != nil {
				return err
			}
			searchapi.New(tickets, prices, hub, a.cfg.Search, a.cfg.HTTP, search.WithMetrics(a.metrics)).
				Register(srv.Engine())

			if err := srv.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			// Open streams would hold Shutdown until its timeout.
			hub.Stop()
			return srv.Stop(context.WithoutCancel(ctx))
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "listen port (0 picks a free one)")
	return cmd
}

func newMockServer(a *app, cfg server.Config, checkers ...observability.HealthChecker) (*server.Server, error) {
	api, err := mockapi.New(a.cfg.Mock)
	if err != nil {
		return nil, err
	}
	srv := server.New(cfg, a.log)
	srv.ApplyDefaults(a.cfg.Name, append([]observability.HealthChecker{api}, checkers...)...)
	api.Register(srv.Engine())
	return srv, nil
}
