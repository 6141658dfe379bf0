// cmd/a2a-ledger/card.go
package main

import (
	"encoding/json"
	"fmt"

	"github.com/kathir-ks/a2a-ledger/internal/roles"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	"github.com/spf13/cobra"
)

func newCardCmd(c *cli) *cobra.Command {
	var (
		role   string
		remote bool
	)
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Print a role's agent card",
		Long: `Prints the agent card a role serves. With --remote the card is fetched
from the running agent, which doubles as a readiness check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := roles.Lookup(role)
			if err != nil {
				return err
			}
			baseURL, err := c.cfg.RoleURL(profile.Name)
			if err != nil {
				return err
			}

			card := profile.AgentCard(baseURL)
			if remote {
				fetched, err := c.client().FetchAgentCard(cmd.Context(), baseURL)
				if err != nil {
					return err
				}
				card = *fetched
			}
			return printCard(cmd, card)
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", "", "role ("+joinRoles()+")")
	cmd.Flags().BoolVar(&remote, "remote", false, "fetch the card from the running agent")
	cmd.MarkFlagRequired("role")
	return cmd
}

func printCard(cmd *cobra.Command, card a2a.AgentCard) error {
	data, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
