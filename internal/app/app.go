// Package app wires the catalog, pipeline, output and serving layers into
// the build and serve entry points.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"rulemerge/internal/catalog"
	"rulemerge/internal/config"
	"rulemerge/internal/logging"
	"rulemerge/internal/output"
	"rulemerge/internal/pipeline"
	"rulemerge/internal/registry"
	"rulemerge/internal/source"
	"rulemerge/internal/transport/grpc"
	httpgw "rulemerge/internal/transport/http"
)

// ErrNoCategories is returned when nothing is configured or discovered.
var ErrNoCategories = errors.New("no categories found")

// Generator runs the pipeline over the configured categories and writes
// one document per category.
type Generator struct {
	cfg     config.Config
	fetcher pipeline.Fetcher
	now     func() time.Time
}

type Option func(*Generator)

func WithFetcher(f pipeline.Fetcher) Option {
	return func(g *Generator) {
		g.fetcher = f
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func NewGenerator(cfg config.Config, opts ...Option) *Generator {
	g := &Generator{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	if g.fetcher == nil {
		g.fetcher = source.NewClient(fetchConfig(cfg.Fetch))
	}
	return g
}

func fetchConfig(f config.Fetch) source.Config {
	return source.Config{
		Timeout:       f.Timeout,
		MaxAttempts:   f.MaxAttempts,
		Backoff:       f.Backoff,
		MaxBackoff:    f.MaxBackoff,
		Concurrency:   f.Concurrency,
		RatePerSecond: f.RatePerSecond,
		Burst:         f.Burst,
		UserAgent:     f.UserAgent,
	}
}

// Output is the outcome of one generation. Documents holds the rendered
// bytes of every category that was written.
type Output struct {
	Results   []pipeline.Result
	Documents map[string][]byte
}

// Failed returns the names of categories whose result carries an error.
func (o Output) Failed() []string {
	var out []string
	for _, r := range o.Results {
		if r.Err != nil {
			out = append(out, r.Category)
		}
	}
	return out
}

// Generate processes the categories named in only, or all of them when only
// is empty. Category-local failures are recorded on the results; the error
// is reserved for problems that prevent any category from running.
func (g *Generator) Generate(ctx context.Context, only []string) (Output, error) {
	logger := logging.GetLogger("app")
	defer logging.LogOperationStart(logger, "generate")()

	descs, err := catalog.Resolve(g.cfg)
	if err != nil {
		return Output{}, err
	}
	if descs, err = selectCategories(descs, only); err != nil {
		return Output{}, err
	}
	if len(descs) == 0 {
		return Output{}, ErrNoCategories
	}

	cats, loadErrs := catalog.LoadAll(descs)
	p := pipeline.New(cats, g.fetcher,
		pipeline.WithConcurrency(g.cfg.Concurrency),
		pipeline.WithClock(g.now),
	)
	processed := make(map[string]pipeline.Result, len(cats))
	for _, r := range p.Run(ctx) {
		processed[r.Category] = r
	}

	out := Output{
		Results:   make([]pipeline.Result, 0, len(descs)),
		Documents: make(map[string][]byte, len(descs)),
	}
	for _, d := range descs {
		if err, ok := loadErrs[d.Name]; ok {
			logger.Error().Err(err).Str("category", d.Name).Msg("cannot load category")
			out.Results = append(out.Results, pipeline.Result{Category: d.Name, Err: err})
			continue
		}

		res := processed[d.Name]
		if res.Err == nil {
			data, err := g.write(d, res)
			if err != nil {
				logger.Error().Err(err).Str("category", d.Name).Msg("cannot write output")
				res.Err = err
			} else {
				out.Documents[d.Name] = data
			}
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}

func (g *Generator) write(d catalog.Descriptor, res pipeline.Result) ([]byte, error) {
	data, err := output.Marshal(output.Document{
		Name:      d.Name,
		Generator: g.cfg.Generator,
		Updated:   res.GeneratedAt,
		Entries:   res.Entries,
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", d.Name, err)
	}
	if err := output.WriteFile(d.Output, data); err != nil {
		return nil, fmt.Errorf("write %s: %w", d.Output, err)
	}
	logger := logging.GetLogger("app")
	logger.Info().
		Str("category", d.Name).
		Str("path", d.Output).
		Int("entries", len(res.Entries)).
		Msg("document written")
	return data, nil
}

func selectCategories(descs []catalog.Descriptor, only []string) ([]catalog.Descriptor, error) {
	if len(only) == 0 {
		return descs, nil
	}
	var out []catalog.Descriptor
	var missing []error
	for _, name := range only {
		i := slices.IndexFunc(descs, func(d catalog.Descriptor) bool { return d.Name == name })
		if i < 0 {
			missing = append(missing, fmt.Errorf("unknown category %q", name))
			continue
		}
		if !slices.ContainsFunc(out, func(d catalog.Descriptor) bool { return d.Name == name }) {
			out = append(out, descs[i])
		}
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}
	return out, nil
}

// Build is the one-shot run behind the build command.
func Build(ctx context.Context, cfg config.Config, only []string) (Output, error) {
	return NewGenerator(cfg).Generate(ctx, only)
}

// snapshotBuilder adapts a Generator to registry.Builder.
type snapshotBuilder struct {
	gen *Generator
}

func (b snapshotBuilder) Build(ctx context.Context) (*registry.Snapshot, error) {
	out, err := b.gen.Generate(ctx, nil)
	if err != nil {
		return nil, err
	}
	if failed := out.Failed(); len(failed) == len(out.Results) {
		return nil, fmt.Errorf("all %d categories failed", len(failed))
	}
	return registry.NewSnapshot(out.Results, out.Documents, b.gen.now()), nil
}

// watchDirs returns rules_dir and every category directory that exists.
func watchDirs(cfg config.Config) []string {
	var dirs []string
	add := func(dir string) {
		if dir == "" || slices.Contains(dirs, dir) {
			return
		}
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			dirs = append(dirs, dir)
		}
	}

	add(cfg.RulesDir)
	if descs, err := catalog.Resolve(cfg); err == nil {
		for _, d := range descs {
			add(d.Dir)
		}
	}
	return dirs
}

// Serve keeps the rule sets rebuilt and exposes them over gRPC and HTTP
// until ctx is canceled.
func Serve(ctx context.Context, cfg config.Config) error {
	grpcLis, err := net.Listen("tcp", cfg.Serve.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	httpLis, err := net.Listen("tcp", cfg.Serve.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("listen http: %w", err)
	}
	return serve(ctx, cfg, grpcLis, httpLis)
}

func serve(ctx context.Context, cfg config.Config, grpcLis, httpLis net.Listener) error {
	logger := logging.GetLogger("app")

	holder := registry.NewHolder()
	builder := snapshotBuilder{gen: NewGenerator(cfg)}

	updCfg := registry.Config{
		Interval:       cfg.Serve.Interval,
		BuildTimeout:   cfg.Serve.BuildTimeout,
		InitialBackoff: cfg.Serve.InitialBackoff,
		MaxBackoff:     cfg.Serve.MaxBackoff,
	}

	g, ctx := errgroup.WithContext(ctx)

	var trigger chan struct{}
	if cfg.Serve.Watch {
		trigger = make(chan struct{}, 1)
		dirs := watchDirs(cfg)
		g.Go(func() error {
			return ignoreCanceled(registry.Watch(ctx, dirs, cfg.Serve.WatchDebounce, trigger))
		})
	}

	g.Go(func() error {
		return ignoreCanceled(registry.Start(ctx, updCfg, builder, holder, trigger))
	})

	g.Go(func() error {
		return grpc.RunGRPCServer(ctx, grpcLis, holder)
	})

	g.Go(func() error {
		return httpgw.RunHTTPServer(ctx, httpLis, holder)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("servers stopped with error")
		return err
	}

	logger.Info().Msg("servers stopped gracefully")
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
