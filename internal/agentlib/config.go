// internal/agentlib/config.go
package agentlib

import (
	"fmt"
	"time"

	"github.com/kathir-ks/a2a-ledger/internal/roles"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
)

// Config holds the configuration for a standalone agent.
type Config struct {
	Role        string        // role name, used as a log and metrics label
	Card        a2a.AgentCard // served verbatim at the well-known path
	Host        string        // interface to bind; empty means all
	Port        int           // port the agent listens on
	MaxInFlight int           // tasks processed concurrently; extra callers wait
	TaskTimeout time.Duration // upper bound on a single task
}

// ConfigForRole builds a Config from a role profile.
func ConfigForRole(p *roles.Profile, host string, port int, baseURL string) *Config {
	if port == 0 {
		port = p.Port
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", port)
	}
	return &Config{
		Role:        p.Name,
		Card:        p.AgentCard(baseURL),
		Host:        host,
		Port:        port,
		MaxInFlight: 1,
		TaskTimeout: 5 * time.Minute,
	}
}

func (c *Config) listenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
