package builtins

import (
	"github.com/inquestai/inquest/internal/tool"
)

// Register adds the built-in investigation tools to a registry, all backed
// by the given search client.
func Register(reg *tool.Registry, client SearchClient) error {
	tools := []tool.Tool{
		NewBuildQueryTool(),
		NewSearchLogsTool(client),
		NewSearchAlertsTool(client),
		NewSearchVulnerabilitiesTool(client),
		NewAgentDataTool(client),
	}

	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}
