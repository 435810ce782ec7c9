package builtins

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/inquestai/inquest/internal/tool"
)

// Index patterns of the Wazuh data streams the search tools read.
const (
	archivesIndex = "wazuh-archives-*"
	alertsIndex   = "wazuh-alerts-*"
	agentsIndex   = "wazuh-agent-*"
)

// defaultSize bounds how many documents a search tool returns.
const defaultSize = 20

var timeRangePattern = regexp.MustCompile(`^(\d+)([mhdw])$`)

// validTimeRange reports whether s is a relative range like "15m", "2h",
// "7d", "1w", or the literal "anytime".
func validTimeRange(s string) bool {
	return s == "anytime" || timeRangePattern.MatchString(s)
}

// buildQueryDSL assembles the bool query of the base builder: a query_string
// clause plus, unless the range is "anytime", an absolute @timestamp window
// ending now.
func buildQueryDSL(queryString, timeRange string, now time.Time) (map[string]any, error) {
	var filters []any

	if timeRange != "anytime" {
		m := timeRangePattern.FindStringSubmatch(timeRange)
		if m == nil {
			return nil, tool.Permanent(fmt.Sprintf("unsupported time range %q", timeRange), nil)
		}
		n, _ := strconv.Atoi(m[1])
		var span time.Duration
		switch m[2] {
		case "m":
			span = time.Duration(n) * time.Minute
		case "h":
			span = time.Duration(n) * time.Hour
		case "d":
			span = time.Duration(n) * 24 * time.Hour
		case "w":
			span = time.Duration(n) * 7 * 24 * time.Hour
		}

		end := now.UTC()
		start := end.Add(-span)
		filters = append(filters, map[string]any{
			"range": map[string]any{
				"@timestamp": map[string]any{
					"gte": start.Format(time.RFC3339),
					"lte": end.Format(time.RFC3339),
				},
			},
		})
	}

	filters = append(filters, map[string]any{
		"query_string": map[string]any{"query": queryString},
	})

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": filters,
			},
		},
	}, nil
}

// refineQuery extends a base bool query with the must-clauses a search tool
// needs. The base is deep-copied; refinement never mutates an upstream
// step's payload.
func refineQuery(base map[string]any, toolName string) map[string]any {
	refined := deepCopyMap(base)

	boolQuery, ok := refined["bool"].(map[string]any)
	if !ok {
		boolQuery = map[string]any{}
		refined["bool"] = boolQuery
	}
	must, _ := boolQuery["must"].([]any)

	switch toolName {
	case "search_alerts":
		must = append(must,
			map[string]any{"match_phrase": map[string]any{"rule.description": "ssh"}},
			map[string]any{"range": map[string]any{"rule.level": map[string]any{"gte": 5}}},
		)
	case "search_logs":
		must = append(must,
			map[string]any{"match_phrase": map[string]any{"event.action": "failure"}},
			map[string]any{"match_phrase": map[string]any{"process.name": "sshd"}},
		)
	case "search_vulnerabilities":
		must = append(must,
			map[string]any{"wildcard": map[string]any{"vulnerability.id": "CVE-*"}},
		)
	}

	boolQuery["must"] = must
	return refined
}

// baseQueryFromUpstream extracts a usable bool query from the payload of the
// first dependency that carries one. Payloads may wrap the query under a
// top-level "query" key or be the query itself.
func baseQueryFromUpstream(upstream tool.Upstream) map[string]any {
	for _, payload := range upstream {
		if q := unwrapQuery(payload); q != nil {
			return q
		}
	}
	return nil
}

func unwrapQuery(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	if inner, ok := payload["query"].(map[string]any); ok {
		return inner
	}
	if _, hasBool := payload["bool"]; hasBool {
		return payload
	}
	return nil
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
