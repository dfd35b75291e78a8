package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var updated = time.Date(2026, 10, 19, 10, 30, 0, 0, time.FixedZone("CEST", 2*3600))

func TestRender(t *testing.T) {
	data, err := Marshal(Document{
		Name:      "reject",
		Generator: "rulemerge",
		Updated:   updated,
		Entries:   []string{"+.b.com", "a.com"},
	})
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, "# NAME: reject\n# AUTHOR: rulemerge\n# UPDATED: 2026-10-19T08:30:00Z\n# TOTAL: 2\npayload:\n"), text)
	assert.Contains(t, text, "- '+.b.com'\n")
	assert.Contains(t, text, "- 'a.com'\n")

	entries, err := Entries(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"+.b.com", "a.com"}, entries)
}

func TestRender_Empty(t *testing.T) {
	data, err := Marshal(Document{Name: "direct", Generator: "rulemerge", Updated: updated})
	require.NoError(t, err)

	assert.Contains(t, string(data), "# TOTAL: 0\n")
	entries, err := Entries(data)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "reject.yaml")

	require.NoError(t, WriteFile(path, []byte("first")))
	require.NoError(t, WriteFile(path, []byte("second")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	leftovers, err := filepath.Glob(filepath.Join(dir, "nested", ".reject.yaml.*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
