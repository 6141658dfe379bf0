// cmd/a2a-ledger/serve.go
package main

import (
	"context"
	"io"
	"time"

	"github.com/kathir-ks/a2a-ledger/internal/agentlib"
	"github.com/kathir-ks/a2a-ledger/internal/completion"
	"github.com/kathir-ks/a2a-ledger/internal/roles"
	"github.com/kathir-ks/a2a-ledger/internal/worker"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var (
		role string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a role's A2A agent server",
		Long: `Serves the agent card and the task endpoint for one role. Each task is
wrapped in the role's prompt and handed to the configured completion
provider, which performs the work and checks tasks off in the ledger.`,
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

			completer, err := completion.New(ctx, c.cfg)
			if err != nil {
				return err
			}
			if closer, ok := completer.(io.Closer); ok {
				defer closer.Close()
			}

			st, err := openStore(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer st.close()

			handler, err := worker.NewHandler(profile, completer, project, c.cfg.PlanFile, c.cfg.LedgerFile)
			if err != nil {
				return err
			}
			agentCfg := agentlib.ConfigForRole(profile, c.cfg.ListenHost, port, baseURL)
			agentCfg.MaxInFlight = c.cfg.MaxInFlight
			agentCfg.TaskTimeout = c.cfg.DispatchTimeout

			agent, err := agentlib.NewAgent(agentCfg, handler, agentlib.WithRepository(st.tasks))
			if err != nil {
				return err
			}
			log.Infof("Role %s using %s completion, default project %s", profile.Name, completer.ProviderName(), project)

			serverErrors := make(chan error, 1)
			go func() {
				serverErrors <- agent.Start()
			}()

			select {
			case err := <-serverErrors:
				return err
			case <-ctx.Done():
				log.Info("Server shutting down...")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := agent.Stop(shutdownCtx); err != nil {
				return err
			}
			log.Info("Server gracefully stopped")
			return nil
		},
	}
	cmd.Flags().StringVarP(&role, "role", "r", "", "role to serve ("+joinRoles()+")")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default: the role's port)")
	cmd.MarkFlagRequired("role")
	return cmd
}
