package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newDemoCmd(a *app) *cobra.Command {
	var flags searchFlags
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Start the mock API on a free port and run a search against it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Server
			cfg.Port = 0
			srv, err := newMockServer(a, cfg)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			if err := srv.Start(ctx); err != nil {
				return err
			}
			searchDone, finish := context.WithCancel(ctx)
			g.Go(func() error {
				<-searchDone.Done()
				return srv.Stop(context.WithoutCancel(ctx))
			})
			g.Go(func() error {
				defer finish()
				api := a.cfg.API
				api.BaseURL = srv.URL()
				return runSearch(ctx, a, api, flags, cmd.OutOrStdout())
			})
			if err := g.Wait(); err != nil {
				return fmt.Errorf("demo: %w", err)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
