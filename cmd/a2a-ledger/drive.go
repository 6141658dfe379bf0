// cmd/a2a-ledger/drive.go
package main

import (
	"fmt"
	"strings"

	"github.com/kathir-ks/a2a-ledger/internal/convergence"
	"github.com/kathir-ks/a2a-ledger/internal/ledger"
	"github.com/kathir-ks/a2a-ledger/internal/roles"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func joinRoles() string {
	return strings.Join(roles.Names(), ", ")
}

func newDriveCmd(c *cli) *cobra.Command {
	var (
		role        string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "drive",
		Short: "Feed a role's pending ledger tasks to its agent until they are all checked",
		Long: `Re-reads the ledger every round, sends the role's unchecked tasks to its
agent and waits for the reply. Ends when every task under the role's
sections is checked, when the ledger stops changing, or on the first
failed dispatch.

Exit codes: 0 converged, 1 error, 2 dispatch failed, 3 stalled,
4 no tasks for the role, 5 agent unavailable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			profile, err := roles.Lookup(role)
			if err != nil {
				return err
			}
			baseURL, err := c.cfg.RoleURL(profile.Name)
			if err != nil {
				return err
			}
			project, err := c.projectPath()
			if err != nil {
				return err
			}
			ledgerPath := c.cfg.LedgerPath(project)
			planPath := c.cfg.PlanPath(project)
			for _, p := range []string{planPath, ledgerPath} {
				if !ledger.Exists(p) {
					return fmt.Errorf("%s not found; run the planner first (a2a-ledger plan)", p)
				}
			}

			client := c.client()
			card, err := client.FetchAgentCard(ctx, baseURL)
			if err != nil {
				return err
			}
			log.Infof("Connected to %s: %s", card.Name, card.Description)

			st, err := openStore(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer st.close()

			if metricsAddr == "" {
				metricsAddr = c.cfg.MetricsAddr
			}
			if metricsAddr != "" {
				ms, err := serveMetrics(metricsAddr)
				if err != nil {
					return err
				}
				defer ms.Close()
			}

			out := newRenderer(cmd.OutOrStdout())
			loop := &convergence.Loop{
				Profile:     profile,
				Client:      client,
				BaseURL:     baseURL,
				ProjectPath: project,
				LedgerPath:  ledgerPath,
				PlanPath:    planPath,
				Pause:       c.cfg.RoundPause,
				StallLimit:  c.cfg.StallRounds,
				MaxRounds:   c.cfg.MaxRounds,
				MaxDepth:    c.cfg.MaxHeadingDepth,
				Locker:      st.locker,
				LockTTL:     c.cfg.DispatchTimeout + c.cfg.DiscoveryTimeout,
				OnReply: func(reply string) {
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s agent response:\n", card.Name)
					out.Print(reply)
				},
			}

			report, err := loop.Run(ctx)
			log.WithFields(log.Fields{
				"role":       report.Role,
				"rounds":     report.Rounds,
				"dispatched": report.Dispatched,
				"pending":    report.LastPending,
				"state":      report.State,
			}).Info("Driver finished")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "All %s tasks completed.\n", profile.Label)
			return nil
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", "", "role to drive ("+joinRoles()+")")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve driver metrics on this address (default: METRICS_ADDR)")
	cmd.MarkFlagRequired("role")
	return cmd
}
