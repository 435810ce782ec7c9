package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/inquestai/inquest/internal/tool"
	"github.com/inquestai/inquest/internal/tool/builtins"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the available investigation tools",
	RunE:  listTools,
}

func listTools(cmd *cobra.Command, args []string) error {
	registry := tool.NewRegistry()

	// Tool listing needs no live event store connection.
	client, err := builtins.NewHTTPClient(builtins.HTTPClientConfig{
		Endpoint: cfg.EventStore.Endpoint,
		Timeout:  cfg.EventStore.Timeout,
	})
	if err != nil {
		return err
	}
	if err := builtins.Register(registry, client); err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	for _, d := range registry.List() {
		fmt.Fprintf(w, "%s\t%s\n", d.Name, d.Description)
	}
	return w.Flush()
}
