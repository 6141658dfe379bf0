// cmd/a2a-ledger/status.go
package main

import (
	"fmt"
	"strings"

	"github.com/kathir-ks/a2a-ledger/internal/ledger"
	"github.com/kathir-ks/a2a-ledger/internal/roles"
	"github.com/spf13/cobra"
)

func newStatusCmd(c *cli) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-section progress of the task ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := c.projectPath()
			if err != nil {
				return err
			}
			ledgerPath := c.cfg.LedgerPath(project)
			doc, err := ledger.Load(ledgerPath)
			if err != nil {
				return err
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "# %s\n\n", ledgerPath)
			sb.WriteString("| Section | Done | Total |\n|---|---:|---:|\n")
			for _, s := range doc.Stats() {
				title := strings.Repeat("  ", s.Depth-1) + s.Title
				fmt.Fprintf(&sb, "| %s | %d | %d |\n", title, s.Completed, s.Total)
			}
			done, total := doc.Totals()
			fmt.Fprintf(&sb, "\n**%d/%d tasks complete.**", done, total)
			if next, ok := doc.NextIncomplete(); ok {
				fmt.Fprintf(&sb, " Next incomplete section: **%s** (%d/%d).", next.Title, next.Completed, next.Total)
			}
			sb.WriteString("\n")

			if role != "" {
				profile, err := roles.Lookup(role)
				if err != nil {
					return err
				}
				res := ledger.Scan(doc, profile.Matcher(), c.cfg.MaxHeadingDepth)
				fmt.Fprintf(&sb, "\n## %s: %s\n\n", profile.Label, res.Outcome)
				for _, t := range res.Tasks {
					fmt.Fprintf(&sb, "- [ ] %s\n", strings.ReplaceAll(t.Text, "\n", "\n  "))
				}
			}

			newRenderer(cmd.OutOrStdout()).Print(sb.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", "", "also list the pending tasks of this role")
	return cmd
}
