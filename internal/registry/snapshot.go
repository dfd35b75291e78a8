package registry

import (
	"time"

	"github.com/google/uuid"

	"rulemerge/internal/pipeline"
	"rulemerge/internal/rule"
)

// RuleSet is one category of a snapshot: the pipeline result, its rendered
// document and a matcher over its entries.
type RuleSet struct {
	Result   pipeline.Result
	Document []byte
	matcher  *rule.Matcher
}

func (rs *RuleSet) Name() string {
	return rs.Result.Category
}

// Match reports the entry covering host, which must already be normalized.
func (rs *RuleSet) Match(host string) (string, bool) {
	return rs.matcher.Match(host)
}

// Snapshot is an immutable view of every category from one build.
type Snapshot struct {
	ID      string
	BuiltAt time.Time

	order []string
	sets  map[string]*RuleSet
}

// NewSnapshot indexes results by category. documents maps category names
// to rendered documents and may be missing entries for failed categories.
func NewSnapshot(results []pipeline.Result, documents map[string][]byte, builtAt time.Time) *Snapshot {
	s := &Snapshot{
		ID:      uuid.NewString(),
		BuiltAt: builtAt.UTC(),
		order:   make([]string, 0, len(results)),
		sets:    make(map[string]*RuleSet, len(results)),
	}
	for _, r := range results {
		s.order = append(s.order, r.Category)
		s.sets[r.Category] = &RuleSet{
			Result:   r,
			Document: documents[r.Category],
			matcher:  rule.NewMatcher(r.Entries),
		}
	}
	return s
}

// Names returns the category names in build order.
func (s *Snapshot) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Snapshot) Get(name string) (*RuleSet, bool) {
	rs, ok := s.sets[name]
	return rs, ok
}

func (s *Snapshot) Len() int {
	return len(s.order)
}
