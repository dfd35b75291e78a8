package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulemerge/internal/pipeline"
	"rulemerge/internal/registry"
)

const testDocument = "# NAME: reject\npayload:\n  - '+.ads.example'\n"

func newTestHolder() *registry.Holder {
	h := registry.NewHolder()
	results := []pipeline.Result{
		{Category: "reject", Entries: []string{"+.ads.example", "tracker.test"}},
		{Category: "empty"},
	}
	h.Set(registry.NewSnapshot(results, map[string][]byte{"reject": []byte(testDocument)}, time.Now()))
	return h
}

func newTestHandler(tb testing.TB, holder *registry.Holder) http.Handler {
	tb.Helper()
	h, err := NewHandler(holder)
	require.NoError(tb, err)
	return h
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHTTP_ListRuleSets(t *testing.T) {
	h := newTestHandler(t, newTestHolder())

	w := get(h, "/api/v1/rulesets")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	sets, ok := decode(t, w)["rule_sets"].([]any)
	require.True(t, ok)
	require.Len(t, sets, 2)
	assert.Equal(t, "reject", sets[0].(map[string]any)["name"])
	assert.Equal(t, float64(2), sets[0].(map[string]any)["count"])
}

func TestHTTP_GetRuleSet(t *testing.T) {
	h := newTestHandler(t, newTestHolder())

	w := get(h, "/api/v1/rulesets/reject")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"+.ads.example", "tracker.test"}, decode(t, w)["entries"])

	w = get(h, "/api/v1/rulesets/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTP_Match(t *testing.T) {
	h := newTestHandler(t, newTestHolder())

	w := get(h, "/api/v1/rulesets/reject/match?host=https://cdn.ads.example/pixel.gif")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["matched"])
	assert.Equal(t, "+.ads.example", body["entry"])
	assert.Equal(t, "cdn.ads.example", body["host"])

	w = get(h, "/api/v1/rulesets/reject/match?host=example.org")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["matched"])

	w = get(h, "/api/v1/rulesets/reject/match")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTP_Document(t *testing.T) {
	h := newTestHandler(t, newTestHolder())

	w := get(h, "/api/v1/rulesets/reject/document")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, documentContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, testDocument, w.Body.String())

	w = get(h, "/api/v1/rulesets/empty/document")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTP_Probes(t *testing.T) {
	holder := registry.NewHolder()
	h := newTestHandler(t, holder)

	assert.Equal(t, http.StatusOK, get(h, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(h, "/readyz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(h, "/api/v1/rulesets").Code)

	holder.Set(newTestHolder().Get())

	assert.Equal(t, http.StatusOK, get(h, "/readyz").Code)
	assert.Equal(t, http.StatusOK, get(h, "/api/v1/rulesets").Code)
}
