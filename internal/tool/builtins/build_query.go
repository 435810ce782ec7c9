package builtins

import (
	"context"
	"time"

	"github.com/inquestai/inquest/internal/tool"
)

// BuildQueryTool assembles a query DSL document from a search expression and
// a relative time range. Downstream search steps consume its payload as
// their base query.
type BuildQueryTool struct {
	now func() time.Time
}

// NewBuildQueryTool creates the query builder tool.
func NewBuildQueryTool() *BuildQueryTool {
	return &BuildQueryTool{now: time.Now}
}

func (t *BuildQueryTool) Name() string { return "build_query" }

func (t *BuildQueryTool) Description() string {
	return "Build a query DSL document for the event store from a search expression and time range."
}

func (t *BuildQueryTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query_string": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Lucene query string expression.",
			},
			"time_range": map[string]any{
				"type":        "string",
				"description": "Relative range like 15m, 2h, 7d, 1w, or anytime.",
			},
		},
		"required":             []any{"query_string"},
		"additionalProperties": false,
	}
}

func (t *BuildQueryTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	queryString, _ := params["query_string"].(string)

	timeRange := "2d"
	if tr, ok := params["time_range"].(string); ok && tr != "" {
		timeRange = tr
	}
	if !validTimeRange(timeRange) {
		return nil, tool.Permanent("time_range must look like 15m, 2h, 7d, 1w, or anytime", nil)
	}

	dsl, err := buildQueryDSL(queryString, timeRange, t.now())
	if err != nil {
		return nil, err
	}

	dsl["time_range"] = timeRange
	return dsl, nil
}
