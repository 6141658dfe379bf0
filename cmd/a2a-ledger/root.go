// cmd/a2a-ledger/root.go
package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kathir-ks/a2a-ledger/internal/agentruntime"
	"github.com/kathir-ks/a2a-ledger/internal/config"
	"github.com/kathir-ks/a2a-ledger/internal/convergence"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitDispatch    = 2
	exitStalled     = 3
	exitNoWork      = 4
	exitUnavailable = 5
)

// cli carries state shared by every subcommand.
type cli struct {
	configFile string
	logLevel   string
	logFormat  string
	project    string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "a2a-ledger",
		Short: "Drive role agents to completion against a shared markdown task ledger",
		Long: `a2a-ledger runs A2A role agents (planning, frontend, backend) and the
drivers that feed them work from a markdown checklist until every task
in their section is checked off.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default: ./config.yaml when present)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&c.logFormat, "log-format", "", "log format (text or json)")
	flags.StringVarP(&c.project, "project", "p", "", "project directory holding the plan and ledger")

	root.AddCommand(
		newServeCmd(c),
		newDriveCmd(c),
		newPlanCmd(c),
		newStatusCmd(c),
		newCardCmd(c),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		log.Error(err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, convergence.ErrStalled):
		return exitStalled
	case errors.Is(err, convergence.ErrNoWork):
		return exitNoWork
	case errors.Is(err, a2a.ErrUnavailable):
		return exitUnavailable
	case errors.Is(err, convergence.ErrDispatch),
		errors.Is(err, a2a.ErrConnectionLost),
		errors.Is(err, a2a.ErrTimeout),
		errors.Is(err, a2a.ErrBadRequest),
		errors.Is(err, a2a.ErrNoReply):
		return exitDispatch
	}
	return exitError
}

func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(c.configFile)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.logFormat != "" {
		cfg.LogFormat = c.logFormat
	}
	if c.project != "" {
		cfg.ProjectPath = c.project
	}
	setupLogging(cfg.LogLevel, cfg.LogFormat)
	c.cfg = cfg
	return nil
}

// projectPath is the configured project directory made absolute, so that
// agents in other working directories resolve the same files.
func (c *cli) projectPath() (string, error) {
	abs, err := filepath.Abs(c.cfg.ProjectPath)
	if err != nil {
		return "", fmt.Errorf("resolve project path %q: %w", c.cfg.ProjectPath, err)
	}
	return abs, nil
}

func (c *cli) client() agentruntime.Client {
	return agentruntime.NewHTTPClient(agentruntime.Options{
		DispatchTimeout:  c.cfg.DispatchTimeout,
		DiscoveryTimeout: c.cfg.DiscoveryTimeout,
	})
}

// setupLogging configures the logger.
func setupLogging(logLevel, format string) {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", logLevel, err)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
		return
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}
