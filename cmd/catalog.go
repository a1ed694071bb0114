package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/reviewer-calls/internal/app"
	"github.com/JakeFAU/reviewer-calls/internal/clock/system"
	"github.com/JakeFAU/reviewer-calls/internal/discovery"
)

func newCatalogCmd() *cobra.Command {
	var filters filterOptions
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the conferences currently in the recruitment window.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			filter, err := filters.filter(cmd.Flags().Changed)
			if err != nil {
				return err
			}
			a, err := app.New(app.Deps{
				Paths:  app.Paths{Catalog: rt.cfg.Data.Catalog, Calls: rt.cfg.Data.Calls, Rejected: rt.cfg.Data.Rejected},
				Clock:  system.New(),
				Logger: rt.logger,
			})
			if err != nil {
				return err
			}
			confs, err := a.Conferences(app.Request{Filter: filter, Window: rt.cfg.RecruitWindow()})
			if err != nil {
				return err
			}
			return printCatalog(cmd.OutOrStdout(), confs)
		},
	}
	filters.bind(cmd)
	return cmd
}

func printCatalog(out io.Writer, confs []discovery.Conference) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SHORT\tAREA\tCCF\tCORE\tNEXT\tNAME")
	for _, c := range confs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Short, dash(c.Area), dash(c.Rank.CCF), dash(c.Rank.CORE), nextOccurrence(c), c.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d conferences in window\n", len(confs))
	return err
}

// nextOccurrence renders the explicit date, else the known conference months.
func nextOccurrence(c discovery.Conference) string {
	if c.NextDate != nil {
		return c.NextDate.String()
	}
	if !c.ConfMonths.Known() {
		return "-"
	}
	months := make([]string, 0, len(c.ConfMonths))
	for _, m := range c.ConfMonths {
		if m != 0 {
			months = append(months, "m"+strconv.Itoa(m))
		}
	}
	return strings.Join(months, ",")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
