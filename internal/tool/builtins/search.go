package builtins

import (
	"context"
	"fmt"
	"time"

	"github.com/inquestai/inquest/internal/tool"
)

// searchToolSchema is the shared input shape of the three search tools.
// min_level only applies to the alert-backed ones but is harmless elsewhere.
func searchToolSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Lucene query string; used when no dependency supplies a base query.",
			},
			"time_range": map[string]any{
				"type":        "string",
				"description": "Relative range like 15m, 2h, 7d, 1w.",
			},
			"min_level": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"maximum":     16,
				"description": "Minimum rule level for alert-backed searches.",
			},
		},
		"additionalProperties": false,
	}
}

// searchParams is the decoded, defaulted view of search tool parameters.
type searchParams struct {
	query     string
	timeRange string
	minLevel  int
}

func decodeSearchParams(params map[string]any, defaultRange string, defaultLevel int) (searchParams, error) {
	out := searchParams{
		query:     "*",
		timeRange: defaultRange,
		minLevel:  defaultLevel,
	}

	if q, ok := params["query"].(string); ok && q != "" {
		out.query = q
	}
	if tr, ok := params["time_range"].(string); ok && tr != "" {
		out.timeRange = tr
	}
	if lvl, ok := params["min_level"].(float64); ok {
		out.minLevel = int(lvl)
	}

	if !validTimeRange(out.timeRange) || out.timeRange == "anytime" {
		return out, tool.Permanent(fmt.Sprintf("time_range %q is not a relative range", out.timeRange), nil)
	}
	return out, nil
}

// baseQuery returns the bool query a search tool should refine: the payload
// of an upstream build_query step when one exists, otherwise a freshly built
// query from the tool's own parameters.
func baseQuery(ctx context.Context, queryString, timeRange string, now time.Time) (map[string]any, error) {
	if upstream := tool.UpstreamFromContext(ctx); len(upstream) > 0 {
		if q := baseQueryFromUpstream(upstream); q != nil {
			return q, nil
		}
	}

	built, err := buildQueryDSL(queryString, timeRange, now)
	if err != nil {
		return nil, err
	}
	q, _ := built["query"].(map[string]any)
	return q, nil
}

// runSearch executes the refined query against an index and shapes the
// result payload.
func runSearch(ctx context.Context, client SearchClient, index string, query map[string]any, extraFilters []any) (map[string]any, error) {
	body := map[string]any{
		"query": query,
		"size":  defaultSize,
	}
	if len(extraFilters) > 0 {
		boolQuery, ok := query["bool"].(map[string]any)
		if ok {
			existing, _ := boolQuery["filter"].([]any)
			boolQuery["filter"] = append(existing, extraFilters...)
		}
	}

	entries, err := client.Search(ctx, index, body)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"index":   index,
		"count":   len(entries),
		"entries": entriesToAny(entries),
	}, nil
}

func entriesToAny(entries []map[string]any) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = e
	}
	return out
}

// SearchLogsTool searches raw archived events.
type SearchLogsTool struct {
	client SearchClient
	now    func() time.Time
}

// NewSearchLogsTool creates the raw log search tool.
func NewSearchLogsTool(client SearchClient) *SearchLogsTool {
	return &SearchLogsTool{client: client, now: time.Now}
}

func (t *SearchLogsTool) Name() string { return "search_logs" }

func (t *SearchLogsTool) Description() string {
	return "Search raw archived events, refining the base query from a dependency when present."
}

func (t *SearchLogsTool) InputSchema() map[string]any { return searchToolSchema() }

func (t *SearchLogsTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	p, err := decodeSearchParams(params, "1h", 0)
	if err != nil {
		return nil, err
	}

	base, err := baseQuery(ctx, p.query, p.timeRange, t.now())
	if err != nil {
		return nil, err
	}

	return runSearch(ctx, t.client, archivesIndex, refineQuery(base, t.Name()), nil)
}

// SearchAlertsTool searches rule-matched alerts with severity filtering.
type SearchAlertsTool struct {
	client SearchClient
	now    func() time.Time
}

// NewSearchAlertsTool creates the alert search tool.
func NewSearchAlertsTool(client SearchClient) *SearchAlertsTool {
	return &SearchAlertsTool{client: client, now: time.Now}
}

func (t *SearchAlertsTool) Name() string { return "search_alerts" }

func (t *SearchAlertsTool) Description() string {
	return "Search alerts at or above a minimum rule level."
}

func (t *SearchAlertsTool) InputSchema() map[string]any { return searchToolSchema() }

func (t *SearchAlertsTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	p, err := decodeSearchParams(params, "1h", 0)
	if err != nil {
		return nil, err
	}

	base, err := baseQuery(ctx, p.query, p.timeRange, t.now())
	if err != nil {
		return nil, err
	}

	levelFilter := []any{
		map[string]any{"range": map[string]any{"rule.level": map[string]any{"gte": p.minLevel}}},
	}
	return runSearch(ctx, t.client, alertsIndex, refineQuery(base, t.Name()), levelFilter)
}

// SearchVulnerabilitiesTool searches vulnerability-detector alerts.
type SearchVulnerabilitiesTool struct {
	client SearchClient
	now    func() time.Time
}

// NewSearchVulnerabilitiesTool creates the vulnerability search tool.
func NewSearchVulnerabilitiesTool(client SearchClient) *SearchVulnerabilitiesTool {
	return &SearchVulnerabilitiesTool{client: client, now: time.Now}
}

func (t *SearchVulnerabilitiesTool) Name() string { return "search_vulnerabilities" }

func (t *SearchVulnerabilitiesTool) Description() string {
	return "Search vulnerability-detector alerts, optionally narrowed by a query expression."
}

func (t *SearchVulnerabilitiesTool) InputSchema() map[string]any { return searchToolSchema() }

func (t *SearchVulnerabilitiesTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	p, err := decodeSearchParams(params, "1h", 5)
	if err != nil {
		return nil, err
	}

	queryString := "rule.groups:vulnerability-detector"
	if p.query != "*" {
		queryString = fmt.Sprintf("%s AND (%s)", queryString, p.query)
	}

	base, err := baseQuery(ctx, queryString, p.timeRange, t.now())
	if err != nil {
		return nil, err
	}

	levelFilter := []any{
		map[string]any{"range": map[string]any{"rule.level": map[string]any{"gte": p.minLevel}}},
	}
	return runSearch(ctx, t.client, alertsIndex, refineQuery(base, t.Name()), levelFilter)
}
