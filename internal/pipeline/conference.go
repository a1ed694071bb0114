package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/reviewer-calls/internal/analyzer"
	"github.com/JakeFAU/reviewer-calls/internal/discovery"
	"github.com/JakeFAU/reviewer-calls/internal/fetcher"
	"github.com/JakeFAU/reviewer-calls/internal/links"
	"github.com/JakeFAU/reviewer-calls/internal/progress"
	"github.com/JakeFAU/reviewer-calls/internal/search"
	"github.com/JakeFAU/reviewer-calls/internal/urlnorm"
)

// node is one URL in a conference's crawl graph.
type node struct {
	url   string
	depth int
	// search and link are the query-layer and link-layer scores.
	search float64
	link   float64
	// analyze is false for the homepage, which is only crawled.
	analyze bool
	page    *discovery.FetchedPage
}

// conferenceRun holds the state of one conference. It is owned by a single
// goroutine.
type conferenceRun struct {
	o       *Orchestrator
	runID   [16]byte
	conf    discovery.Conference
	year    int
	skip    map[string]struct{}
	allow   links.AllowList
	machine *machine
	logger  *zap.Logger

	visited map[string]struct{}
	seeds   []*node
	level1  []*node
	level2  []*node

	found      []*node
	candidates []discovery.Candidate
}

func newConferenceRun(o *Orchestrator, in Input, conf discovery.Conference, year int) *conferenceRun {
	r := &conferenceRun{
		o:       o,
		runID:   progress.UUIDToBytes(in.RunID),
		conf:    conf,
		year:    year,
		skip:    in.Skip,
		visited: make(map[string]struct{}),
		logger: o.logger.With(
			zap.String("conference", conf.Short),
			zap.Int("year", year),
		),
	}
	r.machine = newMachine(func(s State) {
		evt := r.event(progress.StageConfState)
		evt.State = s.String()
		o.progress.Emit(evt)
	})
	return r
}

func (r *conferenceRun) event(stage progress.Stage) progress.Event {
	return progress.Event{
		RunID:      r.runID,
		TS:         r.o.now(),
		Stage:      stage,
		Conference: r.conf.Short,
	}
}

// run walks the states up to Deduping. The caller moves the machine to Done.
func (r *conferenceRun) run(ctx context.Context) (Outcome, error) {
	r.allow = links.NewAllowList(r.conf.Short, r.o.cfg.Trusted, r.conf.Domain)

	if err := r.machine.advance(StateSearching); err != nil {
		return OutcomeFailed, err
	}
	seeded, err := r.searchSeeds(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		return OutcomeInterrupted, nil
	case err != nil:
		return OutcomeFailed, err
	case !seeded:
		return OutcomeNoSeeds, nil
	}

	steps := []struct {
		state State
		fn    func(context.Context)
	}{
		{StateFetchingL1, r.fetchSeeds},
		{StateScoringL1, r.scoreLevel1},
		{StateFetchingL2, r.fetchLevel1},
		{StateScoringL2, r.scoreLevel2},
		{StateAnalyzing, r.analyze},
		{StateDeduping, r.dedupe},
	}
	for _, step := range steps {
		if err := r.machine.advance(step.state); err != nil {
			return OutcomeFailed, err
		}
		step.fn(ctx)
	}
	if ctx.Err() != nil {
		return OutcomeInterrupted, nil
	}
	return OutcomeCompleted, nil
}

// searchSeeds runs the homepage and reviewer queries. It reports false when
// no result looks like the conference's site.
func (r *conferenceRun) searchSeeds(ctx context.Context) (bool, error) {
	homeQuery, reviewerQuery := search.Queries(r.conf, r.year)
	homeResults, homeErr := r.o.search.Search(ctx, homeQuery, r.o.cfg.DateRange)
	reviewerResults, reviewerErr := r.o.search.Search(ctx, reviewerQuery, r.o.cfg.DateRange)
	if homeErr != nil && reviewerErr != nil {
		return false, fmt.Errorf("%w: %w", errSearchUnavailable, errors.Join(homeErr, reviewerErr))
	}
	if homeErr != nil {
		r.logger.Warn("Homepage search failed", zap.String("query", homeQuery), zap.Error(homeErr))
	}
	if reviewerErr != nil {
		r.logger.Warn("Reviewer search failed", zap.String("query", reviewerQuery), zap.Error(reviewerErr))
	}

	ranked := search.RankHomepages(homeResults, r.conf, r.year)
	if len(ranked) == 0 {
		r.logger.Info("No homepage among search results", zap.Int("results", len(homeResults)))
		return false, nil
	}
	home := ranked[0]
	r.allow = r.allow.With(urlnorm.Host(home.URL))
	r.seeds = r.addNode(r.seeds, &node{url: home.URL, search: float64(home.Score)})
	for _, res := range search.ReviewerSeeds(reviewerResults, home.URL) {
		r.seeds = r.addNode(r.seeds, &node{
			url:     res.URL,
			search:  float64(search.ScoreHomepage(res, r.conf, r.year)),
			analyze: true,
		})
	}
	r.logger.Debug("Seeds selected",
		zap.String("homepage", home.URL),
		zap.Int("homepage_score", home.Score),
		zap.Int("seeds", len(r.seeds)))
	return true, nil
}

func (r *conferenceRun) fetchSeeds(ctx context.Context) { r.fetch(ctx, r.seeds) }
func (r *conferenceRun) fetchLevel1(ctx context.Context) { r.fetch(ctx, r.level1) }

func (r *conferenceRun) scoreLevel1(context.Context) {
	r.level1 = r.expand(r.seeds, 1, r.o.cfg.MaxLinks)
}

func (r *conferenceRun) scoreLevel2(context.Context) {
	r.level2 = r.expand(r.level1, 2, r.o.cfg.MaxLinksL2)
}

// addNode appends n unless its URL was already queued for this conference.
func (r *conferenceRun) addNode(list []*node, n *node) []*node {
	key := urlnorm.Normalize(n.url)
	if _, seen := r.visited[key]; seen {
		return list
	}
	r.visited[key] = struct{}{}
	return append(list, n)
}

func (r *conferenceRun) skipped(n *node) bool {
	if _, ok := r.skip[urlnorm.Normalize(n.url)]; ok {
		return true
	}
	if n.page != nil {
		_, ok := r.skip[urlnorm.Normalize(n.page.BaseURL())]
		return ok
	}
	return false
}

func (r *conferenceRun) fetch(ctx context.Context, nodes []*node) {
	if len(nodes) == 0 {
		return
	}
	urls := make([]string, 0, len(nodes))
	for _, n := range nodes {
		urls = append(urls, n.url)
	}
	results := r.o.fetcher.FetchAll(ctx, urls, r.o.cfg.Fetch)
	for _, n := range nodes {
		res, ok := results[n.url]
		if !ok {
			continue
		}
		r.o.progress.Emit(r.fetchEvent(n.url, res))
		if !res.OK() {
			r.logger.Debug("Fetch failed", zap.String("url", n.url), zap.Error(res.Err))
			continue
		}
		n.page = res.Page
	}
}

func (r *conferenceRun) fetchEvent(rawURL string, res fetcher.Result) progress.Event {
	evt := r.event(progress.StageFetchDone)
	evt.URL = rawURL
	evt.Site = urlnorm.Host(rawURL)
	if evt.Site == "" {
		evt.Site = "unknown"
	}
	status := 0
	switch {
	case res.Page != nil:
		status = res.Page.Status
		evt.Bytes = int64(len(res.Page.Body))
	case res.Err != nil:
		var fe *fetcher.FetchError
		if errors.As(res.Err, &fe) {
			status = fe.Status
		}
		evt.Note = res.Err.Error()
	}
	evt.StatusClass = progress.ClassifyStatus(status)
	return evt
}

// expand extracts depth links from the parents' pages and returns the best
// maxLinks targets not seen before. A target reachable from several parents
// keeps its best score.
func (r *conferenceRun) expand(parents []*node, depth, maxLinks int) []*node {
	best := make(map[string]discovery.ScoredLink)
	parentOf := make(map[string]*node)
	for _, p := range parents {
		if p.page == nil {
			continue
		}
		found, err := links.Extract(*p.page, r.allow, depth)
		if err != nil {
			r.logger.Debug("Link extraction failed", zap.String("url", p.url), zap.Error(err))
			continue
		}
		for _, scored := range r.o.scorer.ScoreAll(found, r.allow) {
			key := urlnorm.Normalize(scored.TargetURL)
			if _, seen := r.visited[key]; seen {
				continue
			}
			if cur, ok := best[key]; ok && cur.Score >= scored.Score {
				continue
			}
			best[key] = scored
			parentOf[key] = p
		}
	}

	candidates := make([]discovery.ScoredLink, 0, len(best))
	for _, scored := range best {
		candidates = append(candidates, scored)
	}
	selected := links.Select(candidates, r.o.cfg.MinLinkScore, maxLinks)

	var out []*node
	for _, scored := range selected {
		parent := parentOf[urlnorm.Normalize(scored.TargetURL)]
		out = r.addNode(out, &node{
			url:     scored.TargetURL,
			depth:   depth,
			search:  parent.search,
			link:    scored.Score,
			analyze: true,
		})
	}
	r.logger.Debug("Links selected",
		zap.Int("depth", depth),
		zap.Int("scored", len(best)),
		zap.Int("selected", len(out)))
	return out
}

// analyze fetches the depth 2 pages and evaluates every analyzable page in
// discovery order: reviewer seeds, then depth 1, then depth 2.
func (r *conferenceRun) analyze(ctx context.Context) {
	toFetch := make([]*node, 0, len(r.level2))
	for _, n := range r.level2 {
		if !r.skipped(n) {
			toFetch = append(toFetch, n)
		}
	}
	r.fetch(ctx, toFetch)

	skipped := 0
	for _, group := range [][]*node{r.seeds, r.level1, r.level2} {
		for _, n := range group {
			if !n.analyze {
				continue
			}
			if r.skipped(n) {
				skipped++
				continue
			}
			if n.page == nil {
				continue
			}
			result := r.o.analyzer.Analyze(*n.page)
			if !result.IsCandidate {
				continue
			}
			r.found = append(r.found, n)
			r.candidates = append(r.candidates, r.candidate(n, result))
		}
	}
	if skipped > 0 {
		r.logger.Debug("Skipped known URLs", zap.Int("skipped", skipped))
	}
}

func (r *conferenceRun) candidate(n *node, result discovery.Analysis) discovery.Candidate {
	final := analyzer.FinalScore(n.search, n.link, result.Score)
	return discovery.Candidate{
		Conference:     r.conf.Short,
		Year:           r.year,
		Role:           analyzer.GuessRole(result.Signals, n.url),
		URL:            n.url,
		Label:          analyzer.DetectLabel(n.url, result.Signals),
		Date:           result.Date,
		DiscoveryScore: final,
		SourceDepth:    n.depth,
		Signals:        result.Signals,
		Scores: discovery.Scores{
			Search:   n.search,
			Link:     n.link,
			Content:  result.Score,
			Final:    final,
			Decision: analyzer.Decide(final),
		},
	}
}

// dedupe keeps the first candidate per normalized URL, treating a redirect
// target as the same page as its source.
func (r *conferenceRun) dedupe(context.Context) {
	seen := make(map[string]struct{}, len(r.candidates))
	kept := r.candidates[:0]
	for i, c := range r.candidates {
		keys := []string{urlnorm.Normalize(c.URL)}
		if page := r.found[i].page; page != nil {
			keys = append(keys, urlnorm.Normalize(page.BaseURL()))
		}
		dup := false
		for _, k := range keys {
			if _, ok := seen[k]; ok {
				dup = true
			}
		}
		if dup {
			continue
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		kept = append(kept, c)
	}
	r.candidates = kept
}
