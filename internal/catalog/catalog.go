// Package catalog turns the on-disk category layout into pipeline inputs.
//
// A category is a directory holding up to three files:
//
//	sources.list  upstream URLs, one per line
//	rules.txt     manually authored rules
//	exclude.txt   allowlist entries
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"rulemerge/internal/config"
	"rulemerge/internal/logging"
	"rulemerge/internal/pipeline"
	"rulemerge/internal/source"
)

const (
	SourcesFile = "sources.list"
	RulesFile   = "rules.txt"
	ExcludeFile = "exclude.txt"

	OutputExt = ".yaml"
)

var ErrMissingSourcesFile = errors.New("sources.list not found")

// Descriptor locates one category's inputs and output.
type Descriptor struct {
	Name   string
	Dir    string
	Output string
}

// Resolve returns the ordered category descriptors for cfg: the explicit
// categories list when present, otherwise every subdirectory of rules_dir
// in lexical order.
func Resolve(cfg config.Config) ([]Descriptor, error) {
	if len(cfg.Categories) == 0 {
		return Discover(cfg.RulesDir, cfg.OutputDir)
	}

	out := make([]Descriptor, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		d := Descriptor{Name: c.Name, Dir: c.Dir, Output: c.Output}
		if d.Dir == "" {
			d.Dir = filepath.Join(cfg.RulesDir, c.Name)
		}
		if d.Output == "" {
			d.Output = filepath.Join(cfg.OutputDir, c.Name+OutputExt)
		}
		out = append(out, d)
	}
	return out, nil
}

// Discover lists the category directories under rulesDir, sorted by name.
func Discover(rulesDir, outputDir string) ([]Descriptor, error) {
	entries, err := os.ReadDir(rulesDir)
	if err != nil {
		return nil, fmt.Errorf("read rules dir: %w", err)
	}

	var out []Descriptor
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		out = append(out, Descriptor{
			Name:   e.Name(),
			Dir:    filepath.Join(rulesDir, e.Name()),
			Output: filepath.Join(outputDir, e.Name()+OutputExt),
		})
	}
	return out, nil
}

// Load reads a category's files. A missing sources.list only skips the
// download step; missing rules.txt or exclude.txt are empty.
func Load(d Descriptor) (pipeline.Category, error) {
	logger := logging.GetLogger("catalog").With().Str("category", d.Name).Logger()
	c := pipeline.Category{Name: d.Name}

	sources, err := readSources(d.Dir)
	switch {
	case errors.Is(err, ErrMissingSourcesFile):
		logger.Info().Str("dir", d.Dir).Msg("no sources.list, skipping downloads")
	case err != nil:
		return c, err
	}
	c.Sources = sources

	if c.Manual, err = readLines(filepath.Join(d.Dir, RulesFile)); err != nil {
		return c, err
	}
	if c.Exclude, err = readLines(filepath.Join(d.Dir, ExcludeFile)); err != nil {
		return c, err
	}

	logger.Debug().
		Int("sources", len(c.Sources)).
		Int("manual", len(c.Manual)).
		Int("exclude", len(c.Exclude)).
		Msg("category loaded")
	return c, nil
}

func readSources(dir string) ([]string, error) {
	path := filepath.Join(dir, SourcesFile)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrMissingSourcesFile)
	}
	if err != nil {
		return nil, fmt.Errorf("open sources: %w", err)
	}
	defer f.Close()

	urls, err := source.ParseList(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return urls, nil
}

func readLines(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return source.SplitLines(b), nil
}

// LoadAll loads every descriptor in order. Categories that fail to load are
// left out of the returned list and reported in errs by name.
func LoadAll(ds []Descriptor) (cats []pipeline.Category, errs map[string]error) {
	cats = make([]pipeline.Category, 0, len(ds))
	for _, d := range ds {
		c, err := Load(d)
		if err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[d.Name] = err
			continue
		}
		cats = append(cats, c)
	}
	return cats, errs
}
