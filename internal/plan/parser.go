package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/inquestai/inquest/internal/types"
)

// planDocument is the wire form of a submitted plan. Both YAML and JSON are
// accepted. The planner's legacy field names (task_id, sub_task, tool_name,
// dependent_on_tasks) are recognized alongside the native ones so plans
// produced by older planners load unchanged.
type planDocument struct {
	RunID string         `json:"run_id" yaml:"run_id"`
	Goal  string         `json:"goal" yaml:"goal"`
	Steps []stepDocument `json:"steps" yaml:"steps"`

	// Legacy envelope: {"plans": [...]}
	Plans []stepDocument `json:"plans" yaml:"plans"`
}

type stepDocument struct {
	ID          string         `json:"id" yaml:"id"`
	Tool        string         `json:"tool" yaml:"tool"`
	Description string         `json:"description" yaml:"description"`
	Params      map[string]any `json:"params" yaml:"params"`
	DependsOn   []string       `json:"depends_on" yaml:"depends_on"`

	// Legacy planner fields.
	TaskID      string   `json:"task_id" yaml:"task_id"`
	SubTask     string   `json:"sub_task" yaml:"sub_task"`
	ToolName    string   `json:"tool_name" yaml:"tool_name"`
	DependentOn []string `json:"dependent_on_tasks" yaml:"dependent_on_tasks"`
}

// ParseFile loads a plan document from a YAML or JSON file.
func ParseFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.PLAN_PARSE_FAILED, fmt.Sprintf("cannot read plan file %s", path), err)
	}

	if strings.HasSuffix(path, ".json") {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// ParseYAML parses a YAML plan document.
func ParseYAML(data []byte) (*Plan, error) {
	var doc planDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, types.WrapError(types.PLAN_PARSE_FAILED, "invalid YAML plan document", err)
	}
	return doc.toPlan()
}

// ParseJSON parses a JSON plan document.
func ParseJSON(data []byte) (*Plan, error) {
	var doc planDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, types.WrapError(types.PLAN_PARSE_FAILED, "invalid JSON plan document", err)
	}
	return doc.toPlan()
}

func (d *planDocument) toPlan() (*Plan, error) {
	steps := d.Steps
	if len(steps) == 0 {
		steps = d.Plans
	}
	if len(steps) == 0 {
		return nil, types.NewError(types.PLAN_INVALID, "plan document contains no steps")
	}

	p := &Plan{
		Goal:      d.Goal,
		CreatedAt: time.Now().UTC(),
	}

	if d.RunID != "" {
		p.RunID = types.ID(d.RunID)
	} else {
		p.RunID = types.NewID()
	}

	for i, sd := range steps {
		s, err := sd.toStep(i)
		if err != nil {
			return nil, err
		}
		p.AddStep(s)
	}

	return p, nil
}

func (d *stepDocument) toStep(pos int) (*Step, error) {
	id := d.ID
	if id == "" {
		id = d.TaskID
	}
	if id == "" {
		return nil, types.NewError(types.PLAN_INVALID, fmt.Sprintf("step at position %d has no identifier", pos))
	}

	tool := d.Tool
	if tool == "" {
		tool = d.ToolName
	}
	if tool == "" {
		return nil, types.NewError(types.PLAN_INVALID, fmt.Sprintf("step %q has no tool name", id))
	}
	if tool == "search_raw_logs" {
		// Older planners used the raw-log tool's original name.
		tool = "search_logs"
	}

	desc := d.Description
	if desc == "" {
		desc = d.SubTask
	}

	params := d.Params
	if len(params) == 0 && d.Tool == "" && d.SubTask != "" {
		// Legacy documents carry the search expression in sub_task rather
		// than params. Map it onto the parameter the tool expects.
		switch tool {
		case "build_query":
			params = map[string]any{"query_string": d.SubTask}
		case "search_logs", "search_alerts", "search_vulnerabilities":
			params = map[string]any{"query": d.SubTask}
		}
	}

	depsIn := d.DependsOn
	if len(depsIn) == 0 {
		depsIn = d.DependentOn
	}
	deps := make([]types.ID, 0, len(depsIn))
	for _, dep := range depsIn {
		deps = append(deps, types.ID(dep))
	}

	return &Step{
		ID:          types.ID(id),
		Tool:        tool,
		Description: desc,
		Params:      params,
		DependsOn:   deps,
		Status:      StepStatusPending,
	}, nil
}
