package builtins

import (
	"context"
	"fmt"

	"github.com/inquestai/inquest/internal/tool"
)

// AgentDataTool looks up endpoint agent information by id or name. When
// neither is supplied, it extracts the agent name from the first entry of an
// upstream search result.
type AgentDataTool struct {
	client SearchClient
}

// NewAgentDataTool creates the agent lookup tool.
func NewAgentDataTool(client SearchClient) *AgentDataTool {
	return &AgentDataTool{client: client}
}

func (t *AgentDataTool) Name() string { return "get_agent_data" }

func (t *AgentDataTool) Description() string {
	return "Retrieve endpoint agent information by agent_id or agent_name."
}

func (t *AgentDataTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent_id": map[string]any{
				"type":        "string",
				"description": "Agent identifier.",
			},
			"agent_name": map[string]any{
				"type":        "string",
				"description": "Agent host name.",
			},
		},
		"additionalProperties": false,
	}
}

func (t *AgentDataTool) Execute(ctx context.Context, params map[string]any) (map[string]any, error) {
	agentID, _ := params["agent_id"].(string)
	agentName, _ := params["agent_name"].(string)

	if agentID == "" && agentName == "" {
		if upstream := tool.UpstreamFromContext(ctx); len(upstream) > 0 {
			agentName = agentNameFromUpstream(upstream)
		}
	}

	var queryStr string
	switch {
	case agentID != "":
		queryStr = fmt.Sprintf("agent.id:%q", agentID)
	case agentName != "":
		queryStr = fmt.Sprintf("agent.name:%q", agentName)
	default:
		return nil, tool.Permanent("agent_id or agent_name required", nil)
	}

	body := map[string]any{
		"query": map[string]any{
			"query_string": map[string]any{"query": queryStr},
		},
		"size": 1,
	}

	entries, err := t.client.Search(ctx, agentsIndex, body)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return map[string]any{"found": false}, nil
	}

	return map[string]any{
		"found": true,
		"agent": entries[0],
	}, nil
}

// agentNameFromUpstream digs agent.name out of the first entry of any
// upstream search payload.
func agentNameFromUpstream(upstream tool.Upstream) string {
	for _, payload := range upstream {
		entries, ok := payload["entries"].([]any)
		if !ok || len(entries) == 0 {
			continue
		}
		first, ok := entries[0].(map[string]any)
		if !ok {
			continue
		}
		agent, ok := first["agent"].(map[string]any)
		if !ok {
			continue
		}
		if name, ok := agent["name"].(string); ok && name != "" {
			return name
		}
	}
	return ""
}
