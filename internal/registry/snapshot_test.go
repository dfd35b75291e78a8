package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulemerge/internal/pipeline"
)

func TestSnapshot(t *testing.T) {
	builtAt := time.Date(2026, 10, 19, 12, 0, 0, 0, time.FixedZone("X", 3600))
	results := []pipeline.Result{
		{Category: "reject", Entries: []string{"+.ads.com", "tracker.net"}},
		{Category: "direct", Entries: []string{"+.cn"}},
	}
	docs := map[string][]byte{"reject": []byte("payload: []\n")}

	s := NewSnapshot(results, docs, builtAt)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, builtAt.UTC(), s.BuiltAt)
	assert.Equal(t, []string{"reject", "direct"}, s.Names())
	assert.Equal(t, 2, s.Len())

	rs, ok := s.Get("reject")
	require.True(t, ok)
	assert.Equal(t, "reject", rs.Name())
	assert.Equal(t, "payload: []\n", string(rs.Document))

	entry, ok := rs.Match("x.ads.com")
	assert.True(t, ok)
	assert.Equal(t, "+.ads.com", entry)
	_, ok = rs.Match("www.tracker.net")
	assert.False(t, ok)

	direct, ok := s.Get("direct")
	require.True(t, ok)
	assert.Nil(t, direct.Document)

	_, ok = s.Get("proxy")
	assert.False(t, ok)

	other := NewSnapshot(results, docs, builtAt)
	assert.NotEqual(t, s.ID, other.ID)
}
