// Package pipeline merges, filters and converts the rule sources of each
// category into its final entry set.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"rulemerge/internal/logging"
	"rulemerge/internal/rule"
	"rulemerge/internal/source"
)

// Category describes one independent rule class. Sources are fetched,
// Manual lines are appended after them, Exclude lines form the allowlist.
type Category struct {
	Name    string
	Sources []string
	Manual  []string
	Exclude []string
}

// Fetcher retrieves sources; results must come back in the order of urls.
type Fetcher interface {
	FetchAll(ctx context.Context, urls []string) []source.Result
}

// SourceStatus reports what one source contributed.
type SourceStatus struct {
	URL      string
	Lines    int
	Attempts int
	Err      error
}

func (s SourceStatus) OK() bool {
	return s.Err == nil
}

// Stats counts rules at each stage of a category run.
type Stats struct {
	RawLines   int
	Normalized int
	Excluded   int
	Unique     int
	Entries    int
}

// Result is the outcome of processing one category.
type Result struct {
	Category    string
	Entries     []string
	Sources     []SourceStatus
	Stats       Stats
	GeneratedAt time.Time
	Err         error
}

// Count is the number of emitted entries.
func (r Result) Count() int {
	return len(r.Entries)
}

// FailedSources returns the number of sources that contributed nothing.
func (r Result) FailedSources() int {
	n := 0
	for _, s := range r.Sources {
		if !s.OK() {
			n++
		}
	}
	return n
}

type Pipeline struct {
	categories  []Category
	fetcher     Fetcher
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

type Option func(*Pipeline)

// WithConcurrency bounds how many categories are processed at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New builds a pipeline over an ordered list of categories.
func New(categories []Category, fetcher Fetcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		categories:  categories,
		fetcher:     fetcher,
		concurrency: 4,
		now:         time.Now,
		log:         logging.GetLogger("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes every category in parallel and returns one result per
// category in input order. A failing category does not stop the others.
func (p *Pipeline) Run(ctx context.Context) []Result {
	results := make([]Result, len(p.categories))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, c := range p.categories {
		i, c := i, c
		g.Go(func() error {
			results[i] = p.Process(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Process runs one category: fetch, merge with manual rules, normalize,
// filter, dedup, project.
func (p *Pipeline) Process(ctx context.Context, c Category) Result {
	logger := p.log.With().Str("category", c.Name).Logger()
	res := Result{Category: c.Name}

	var fetched []source.Result
	if len(c.Sources) > 0 {
		if p.fetcher == nil {
			logger.Warn().Int("sources", len(c.Sources)).Msg("no fetcher configured, skipping downloads")
		} else {
			fetched = p.fetcher.FetchAll(ctx, c.Sources)
		}
	}

	res.Sources = make([]SourceStatus, 0, len(fetched))
	for _, f := range fetched {
		st := SourceStatus{URL: f.URL, Attempts: f.Attempts, Err: f.Err}
		if f.Err != nil {
			logger.Warn().
				Str("url", f.URL).
				Str("reason", string(source.ReasonOf(f.Err))).
				Int("attempts", f.Attempts).
				Err(f.Err).
				Msg("source unavailable, contributing nothing")
		} else {
			st.Lines = len(f.Lines())
		}
		res.Sources = append(res.Sources, st)
	}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	lines := Merge(fetched, c.Manual)
	res.Entries, res.Stats = Convert(lines, rule.BuildAllowlist(c.Exclude))
	res.GeneratedAt = p.now().UTC()

	logger.Info().
		Int("raw", res.Stats.RawLines).
		Int("normalized", res.Stats.Normalized).
		Int("excluded", res.Stats.Excluded).
		Int("entries", res.Stats.Entries).
		Int("failed_sources", res.FailedSources()).
		Msg("category processed")

	return res
}

// Merge concatenates the lines of successful fetches, in source order,
// followed by the manual lines.
func Merge(fetched []source.Result, manual []string) []string {
	var lines []string
	for _, f := range fetched {
		lines = append(lines, f.Lines()...)
	}
	return append(lines, manual...)
}

// Convert is the pure core of a category run. Manual lines are not exempt
// from the allowlist.
func Convert(lines []string, al rule.Allowlist) ([]string, Stats) {
	st := Stats{RawLines: len(lines)}

	rules := rule.NormalizeAll(lines)
	st.Normalized = len(rules)

	kept := rule.Filter(rules, al)
	st.Excluded = len(rules) - len(kept)

	unique := rule.Dedup(kept)
	st.Unique = len(unique)

	entries := rule.ProjectAll(unique)
	st.Entries = len(entries)

	return entries, st
}
