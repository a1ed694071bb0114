package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/reviewer-calls/internal/catalog"
)

// filterOptions are the conference selection flags shared by discover and
// catalog.
type filterOptions struct {
	conference string
	rank       string
	coreRank   string
	area       string
	limit      int
}

func (f *filterOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.conference, "conference", "", "only this conference (short name)")
	cmd.Flags().StringVar(&f.rank, "rank", "", "CCF rank filter: A, B or C")
	cmd.Flags().StringVar(&f.coreRank, "core-rank", "", "CORE rank filter: A, B or C")
	cmd.Flags().StringVar(&f.area, "area", "", "area filter: "+strings.Join(catalog.ValidAreas, ", "))
	cmd.Flags().IntVar(&f.limit, "limit", 0, "process at most N conferences")
}

// filter validates the flags and converts them.
func (f filterOptions) filter(changed func(string) bool) (catalog.Filter, error) {
	if f.rank != "" && !catalog.ValidRank(f.rank) {
		return catalog.Filter{}, fmt.Errorf("invalid --rank %q: must be one of %s", f.rank, strings.Join(catalog.ValidRanks, ", "))
	}
	if f.coreRank != "" && !catalog.ValidRank(f.coreRank) {
		return catalog.Filter{}, fmt.Errorf("invalid --core-rank %q: must be one of %s", f.coreRank, strings.Join(catalog.ValidRanks, ", "))
	}
	if f.area != "" && !catalog.ValidArea(f.area) {
		return catalog.Filter{}, fmt.Errorf("invalid --area %q: must be one of %s", f.area, strings.Join(catalog.ValidAreas, ", "))
	}
	if changed("limit") && f.limit <= 0 {
		return catalog.Filter{}, fmt.Errorf("--limit must be > 0")
	}
	return catalog.Filter{
		Short: f.conference,
		CCF:   strings.ToUpper(f.rank),
		CORE:  strings.ToUpper(f.coreRank),
		Area:  strings.ToUpper(f.area),
		Limit: f.limit,
	}, nil
}
