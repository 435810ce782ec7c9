package builtins

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidTimeRange(t *testing.T) {
	for _, ok := range []string{"15m", "2h", "7d", "1w", "anytime"} {
		assert.True(t, validTimeRange(ok), "range %q", ok)
	}
	for _, bad := range []string{"", "2", "d2", "2days", "-1d", "1.5h"} {
		assert.False(t, validTimeRange(bad), "range %q", bad)
	}
}

func TestBuildQueryDSLWithWindow(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	dsl, err := buildQueryDSL("user.name:root", "2d", now)
	require.NoError(t, err)

	boolQuery := dsl["query"].(map[string]any)["bool"].(map[string]any)
	filters := boolQuery["filter"].([]any)
	require.Len(t, filters, 2)

	window := filters[0].(map[string]any)["range"].(map[string]any)["@timestamp"].(map[string]any)
	assert.Equal(t, "2025-03-12T12:00:00Z", window["gte"])
	assert.Equal(t, "2025-03-14T12:00:00Z", window["lte"])

	qs := filters[1].(map[string]any)["query_string"].(map[string]any)
	assert.Equal(t, "user.name:root", qs["query"])
}

func TestBuildQueryDSLAnytime(t *testing.T) {
	dsl, err := buildQueryDSL("*", "anytime", time.Now())
	require.NoError(t, err)

	filters := dsl["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]any)
	require.Len(t, filters, 1)
	assert.Contains(t, filters[0], "query_string")
}

func TestRefineQueryPerTool(t *testing.T) {
	base := map[string]any{
		"bool": map[string]any{
			"filter": []any{map[string]any{"query_string": map[string]any{"query": "*"}}},
		},
	}

	tests := []struct {
		toolName  string
		wantMusts int
	}{
		{"search_alerts", 2},
		{"search_logs", 2},
		{"search_vulnerabilities", 1},
		{"unknown_tool", 0},
	}

	for _, tt := range tests {
		t.Run(tt.toolName, func(t *testing.T) {
			refined := refineQuery(base, tt.toolName)
			musts, _ := refined["bool"].(map[string]any)["must"].([]any)
			assert.Len(t, musts, tt.wantMusts)
		})
	}
}

func TestRefineQueryDoesNotMutateBase(t *testing.T) {
	base := map[string]any{
		"bool": map[string]any{
			"must": []any{map[string]any{"match_phrase": map[string]any{"host.name": "web01"}}},
		},
	}

	refined := refineQuery(base, "search_alerts")

	assert.Len(t, base["bool"].(map[string]any)["must"].([]any), 1, "base query mutated")
	assert.Len(t, refined["bool"].(map[string]any)["must"].([]any), 3)
}

func TestUnwrapQuery(t *testing.T) {
	boolQuery := map[string]any{"bool": map[string]any{"filter": []any{}}}

	assert.Equal(t, boolQuery, unwrapQuery(map[string]any{"query": boolQuery}))
	assert.Equal(t, boolQuery, unwrapQuery(boolQuery))
	assert.Nil(t, unwrapQuery(map[string]any{"entries": []any{}}))
	assert.Nil(t, unwrapQuery(nil))
}
