package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/reviewer-calls/internal/app"
	"github.com/JakeFAU/reviewer-calls/internal/config"
	"github.com/JakeFAU/reviewer-calls/internal/search"
)

// shutdownTimeout bounds draining notifications and progress sinks.
const shutdownTimeout = 30 * time.Second

type discoverOptions struct {
	filters   filterOptions
	provider  string
	serperKey string
	dateRange string
	dryRun    bool
	initial   bool
	maxLinks  int
	repo      string
	eval      string
	timeout   time.Duration
}

func newDiscoverCmd() *cobra.Command {
	var opts discoverOptions
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run one discovery pass and append new calls to the dataset.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			cfg, req, err := opts.apply(rt.cfg, cmd.Flags().Changed)
			if err != nil {
				return err
			}
			return runDiscover(cmd.Context(), cmd.OutOrStdout(), cfg, req, rt.logger)
		},
	}
	opts.filters.bind(cmd)
	flags := cmd.Flags()
	flags.StringVar(&opts.provider, "provider", config.ProviderDuckDuckGo, "search provider: duckduckgo or serper")
	flags.StringVar(&opts.serperKey, "serper-key", "", "Serper API key (default $SERPER_API_KEY)")
	flags.StringVar(&opts.dateRange, "date-range", "m", "search date range: d, w, m, y or none")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "report candidates without writing, notifying or recording the run")
	flags.BoolVar(&opts.initial, "init", false, "initial sweep: search the past year")
	flags.IntVar(&opts.maxLinks, "max-links", 15, "links followed per page at depth 1")
	flags.StringVar(&opts.repo, "repo", "", "owner/name of the triage repository (default $GITHUB_REPOSITORY)")
	flags.StringVar(&opts.eval, "eval", "", "write the evaluation report to a path or gs://bucket/key")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Minute, "overall run timeout")
	return cmd
}

// apply overlays the flags that were set on cfg and builds the request.
func (o discoverOptions) apply(cfg config.Config, changed func(string) bool) (config.Config, app.Request, error) {
	filter, err := o.filters.filter(changed)
	if err != nil {
		return cfg, app.Request{}, err
	}
	if changed("provider") {
		cfg.Search.Provider = o.provider
	}
	if changed("serper-key") {
		cfg.Search.SerperKey = o.serperKey
	}
	if changed("date-range") {
		cfg.Search.DateRange = o.dateRange
	}
	if o.initial {
		cfg.Search.DateRange = string(search.DateRangeYear)
	}
	if changed("max-links") {
		if o.maxLinks <= 0 {
			return cfg, app.Request{}, fmt.Errorf("--max-links must be > 0")
		}
		cfg.Crawl.MaxLinks = o.maxLinks
	}
	if changed("repo") {
		cfg.Notify.Repo = o.repo
	}
	if changed("timeout") {
		cfg.Pipeline.Timeout = o.timeout
	}
	if changed("eval") {
		cfg.Report.Eval = o.eval
	}
	if err := cfg.Validate(); err != nil {
		return cfg, app.Request{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, app.Request{
		Filter:   filter,
		Window:   cfg.RecruitWindow(),
		DryRun:   o.dryRun,
		EvalDest: cfg.Report.Eval,
	}, nil
}

func runDiscover(ctx context.Context, out io.Writer, cfg config.Config, req app.Request, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		svc.close(closeCtx)
	}()

	sum, err := svc.app.Discover(ctx, req)
	if err != nil {
		return err
	}
	return printSummary(out, sum)
}

func printSummary(out io.Writer, sum app.Summary) error {
	fmt.Fprintf(out, "run %s\n", sum.RunID)
	fmt.Fprintf(out, "conferences: %d searched, %d completed, %d interrupted, %d skipped\n",
		sum.Searched, sum.Completed, sum.Interrupted, sum.Skipped)
	fmt.Fprintf(out, "candidates:  %d discovered, %d kept, %d dropped\n", sum.Discovered, sum.Kept, sum.Dropped)
	switch {
	case sum.DryRun:
		fmt.Fprintln(out, "dry run: dataset not modified")
	case sum.Written:
		fmt.Fprintln(out, "dataset updated")
	}
	if sum.EvalURI != "" {
		fmt.Fprintf(out, "eval report: %s\n", sum.EvalURI)
	}
	if len(sum.Candidates) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CONFERENCE\tYEAR\tROLE\tSCORE\tURL")
	for _, c := range sum.Candidates {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.1f\t%s\n", c.Conference, c.Year, c.Role, c.DiscoveryScore, c.URL)
	}
	return tw.Flush()
}
