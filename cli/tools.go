package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/tools/builtin"
)

// NewToolsCmd creates the "tools" command listing the builtin tools with the
// indices accepted by tools.enabled.
func NewToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List builtin tools and their indices",
		Args:  cobra.NoArgs,
		RunE:  runTools,
	}
}

func runTools(cmd *cobra.Command, _ []string) error {
	agentCtx := core.NewAgentContext(nil)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tAPPROVAL\tDESCRIPTION")

	for i, it := range builtin.All() {
		b, err := it.Instantiate(cmd.Context(), agentCtx)
		if err != nil {
			return exitError(exitRuntime, "tool %s: %v", it.Name, err)
		}

		for _, t := range b.Tools {
			d := t.Descriptor()
			approval := "-"
			if d.RequiresApproval {
				approval = "required"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, d.Name, approval, d.Description)
		}
	}

	return w.Flush()
}
