package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/flightsearch/enrich"
	"github.com/kbukum/flightsearch/fetch"
	"github.com/kbukum/flightsearch/flights"
	"github.com/kbukum/flightsearch/logger"
	"github.com/kbukum/flightsearch/search"
)

type searchFlags struct {
	from    string
	to      string
	policy  string
	workers int
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", flights.DefaultFrom, "origin airport (IATA)")
	cmd.Flags().StringVar(&f.to, "to", flights.DefaultTo, "destination airport (IATA)")
	cmd.Flags().StringVar(&f.policy, "policy", "", "enrichment failure policy: fail_fast or isolate")
	cmd.Flags().IntVar(&f.workers, "workers", -1, "max concurrent fetches (0 = unbounded)")
}

func (f *searchFlags) query() flights.Query {
	return flights.Query{From: strings.ToUpper(f.from), To: strings.ToUpper(f.to)}
}

func (f *searchFlags) apply(cfg search.Config) search.Config {
	if f.policy != "" {
		cfg.Enrichment.Policy = enrich.Policy(f.policy)
	}
	if f.workers >= 0 {
		cfg.Workers = f.workers
	}
	return cfg
}

func newSearchCmd(a *app) *cobra.Command {
	var flags searchFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search a route and price every ticket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd.Context(), a, a.cfg.API, flags, cmd.OutOrStdout())
		},
	}
	flags.register(cmd)
	return cmd
}

// runSearch opens a session against the API at apiCfg, renders progress
// to out and prints the final table. It returns the pipeline failure, if
// any.
func runSearch(ctx context.Context, a *app, apiCfg flights.ClientConfig, flags searchFlags, out io.Writer) error {
	tickets, prices, err := newFetchers(a, apiCfg)
	if err != nil {
		return err
	}

	r := newRenderer(out)
	q := flags.query()
	fmt.Fprintf(r.out, "Searching %s -> %s\n", q.From, q.To)

	s, err := search.Open(ctx, q, tickets, prices, r, flags.apply(a.cfg.Search), search.WithMetrics(a.metrics))
	if err != nil {
		return err
	}
	defer func() {
		s.Close()
		s.Wait()
	}()

	var failure error
	select {
	case res := <-r.done:
		failure = res.err
	case <-ctx.Done():
		s.Close()
		fmt.Fprintln(r.out, "Search cancelled")
	}

	// The session is finished or closed; the snapshot is final either way.
	final, err := s.Snapshot(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	printTable(r.out, final)
	return failure
}

// newFetchers builds the instrumented ticket and price fetchers for the API
// at apiCfg.
func newFetchers(a *app, apiCfg flights.ClientConfig) (
	fetch.Fetcher[flights.Query, []flights.Ticket],
	fetch.Fetcher[flights.Ticket, flights.Ticket],
	error,
) {
	client, err := flights.NewClient(apiCfg)
	if err != nil {
		return nil, nil, err
	}
	log := logger.Get("fetch")
	tickets := flights.TicketsFetcher(client,
		fetch.WithLogging[flights.Query, []flights.Ticket](log),
		fetch.WithTracing[flights.Query, []flights.Ticket](),
		fetch.WithMetrics[flights.Query, []flights.Ticket](a.metrics),
	)
	prices := flights.PriceFetcher(client,
		fetch.WithLogging[flights.Ticket, flights.Ticket](log),
		fetch.WithTracing[flights.Ticket, flights.Ticket](),
		fetch.WithMetrics[flights.Ticket, flights.Ticket](a.metrics),
	)
	return tickets, prices, nil
}
