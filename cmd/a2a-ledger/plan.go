// cmd/a2a-ledger/plan.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kathir-ks/a2a-ledger/internal/agentruntime"
	"github.com/kathir-ks/a2a-ledger/internal/config"
	"github.com/kathir-ks/a2a-ledger/internal/ledger"
	"github.com/kathir-ks/a2a-ledger/internal/roles"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newPlanCmd(c *cli) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Ask the planning agent to write the plan and task ledger for a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if description == "" {
				return errors.New("a project description is required (--description)")
			}
			project, err := c.projectPath()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(project, 0o755); err != nil {
				return fmt.Errorf("create project directory: %w", err)
			}

			client := c.client()
			card, err := client.FetchAgentCard(ctx, c.cfg.PlannerURL)
			if err != nil {
				return err
			}
			log.Infof("Connected to %s: %s", card.Name, card.Description)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Sending project request to %s...\n", card.Name)
			resp, err := client.Dispatch(ctx, c.cfg.PlannerURL, roles.BuildPlanningRequest(project, description))
			if err != nil {
				return err
			}
			reply, err := a2a.ExtractReply(resp)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\n%s response:\n", card.Name)
			newRenderer(w).Print(reply)

			ledgerPath := c.cfg.LedgerPath(project)
			if doc, err := ledger.Load(ledgerPath); err == nil {
				done, total := doc.Totals()
				fmt.Fprintf(w, "\nLedger %s: %d/%d tasks complete\n", ledgerPath, done, total)
			} else {
				log.Warnf("Planner finished but the ledger is not readable: %v", err)
			}

			checkPeers(ctx, w, client, c.cfg)
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "what to build")
	return cmd
}

// checkPeers reports whether the frontend and backend agents answer
// discovery. Unready peers are not an error.
func checkPeers(ctx context.Context, w io.Writer, client agentruntime.Client, cfg *config.Config) {
	peers := []string{roles.Frontend, roles.Backend}
	lines := make([]string, len(peers))

	g, gctx := errgroup.WithContext(ctx)
	for i, role := range peers {
		i, role := i, role
		g.Go(func() error {
			url, err := cfg.RoleURL(role)
			if err != nil {
				return err
			}
			var line string
			if card, err := client.FetchAgentCard(gctx, url); err != nil {
				line = fmt.Sprintf("  %-8s %s  not ready: %v", role, url, err)
			} else {
				line = fmt.Sprintf("  %-8s %s  ready (%s v%s)", role, url, card.Name, card.Version)
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warnf("Probing peers: %v", err)
	}

	fmt.Fprintln(w, "\nPeer agents:")
	for _, l := range lines {
		if l != "" {
			fmt.Fprintln(w, l)
		}
	}
	fmt.Fprintln(w, "Start the drivers with: a2a-ledger drive --role frontend | backend")
}
