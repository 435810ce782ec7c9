package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inquestai/inquest/internal/audit"
	"github.com/inquestai/inquest/internal/types"
)

var auditJSON bool

var auditCmd = &cobra.Command{
	Use:   "audit <run-id>",
	Short: "Show the persisted audit trail of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  showAudit,
}

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Emit entries as JSON lines")
}

func showAudit(cmd *cobra.Command, args []string) error {
	// Plan documents may carry non-UUID run identifiers, so the argument is
	// taken as-is rather than parsed as a UUID.
	runID := types.ID(args[0])

	store, err := audit.OpenStore(cfg.Audit.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.QueryByRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no audit entries for run %s\n", runID)
		return nil
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		if auditJSON {
			raw, err := json.Marshal(e)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(raw))
			continue
		}

		if e.StepID.IsZero() {
			fmt.Fprintf(out, "%s  %-10s\n", e.Timestamp.Format("2006-01-02 15:04:05.000"), e.Action)
			continue
		}
		fmt.Fprintf(out, "%s  %-10s step=%s\n", e.Timestamp.Format("2006-01-02 15:04:05.000"), e.Action, e.StepID)
	}
	return nil
}
