// internal/agentruntime/client.go
package agentruntime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	log "github.com/sirupsen/logrus"
)

// Client talks to remote agents: card discovery and task dispatch.
type Client interface {
	// FetchAgentCard retrieves {baseURL}/.well-known/agent.json.
	// Every failure is reported as a2a.ErrUnavailable.
	FetchAgentCard(ctx context.Context, baseURL string) (*a2a.AgentCard, error)

	// SendTask posts env to {baseURL}/tasks/send and waits for the reply.
	// Failures are classified as a2a.ErrTimeout, a2a.ErrConnectionLost,
	// a2a.ErrBadRequest or a2a.ErrNoReply.
	SendTask(ctx context.Context, baseURL string, env a2a.TaskEnvelope) (*a2a.TaskResponse, error)

	// Dispatch wraps text in a fresh user envelope and sends it.
	Dispatch(ctx context.Context, baseURL, text string) (*a2a.TaskResponse, error)
}

// Options tunes the HTTP client.
type Options struct {
	DispatchTimeout  time.Duration // whole-request bound for SendTask
	DiscoveryTimeout time.Duration // whole-request bound for FetchAgentCard
}

// httpClient implements the Client interface using Go's standard HTTP client.
type httpClient struct {
	dispatch  *http.Client
	discovery *http.Client
}

// NewHTTPClient creates a new agent runtime client using HTTP.
func NewHTTPClient(opts Options) Client {
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = 5 * time.Minute
	}
	if opts.DiscoveryTimeout <= 0 {
		opts.DiscoveryTimeout = 10 * time.Second
	}
	// Shared transport with connection pooling
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &httpClient{
		dispatch:  &http.Client{Transport: transport, Timeout: opts.DispatchTimeout},
		discovery: &http.Client{Transport: transport, Timeout: opts.DiscoveryTimeout},
	}
}

func endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

// FetchAgentCard implements the Client interface.
func (c *httpClient) FetchAgentCard(ctx context.Context, baseURL string) (*a2a.AgentCard, error) {
	url := endpoint(baseURL, a2a.PathAgentCard)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", a2a.ErrUnavailable, baseURL, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.discovery.Do(req)
	if err != nil {
		log.Debugf("Discovery request to %s failed: %v", url, err)
		return nil, fmt.Errorf("%w: could not connect to the agent at %s: %v", a2a.ErrUnavailable, baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d %s", a2a.ErrUnavailable, url, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var card a2a.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("%w: undecodable agent card from %s: %v", a2a.ErrUnavailable, url, err)
	}
	return &card, nil
}

// SendTask implements the Client interface.
func (c *httpClient) SendTask(ctx context.Context, baseURL string, env a2a.TaskEnvelope) (*a2a.TaskResponse, error) {
	url := endpoint(baseURL, a2a.PathSendTask)

	// 1. Marshal the request payload
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task %s: %w", env.ID, err)
	}

	// 2. Create HTTP Request. The client timeout still applies unless
	// the context has an earlier deadline.
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")

	log.WithFields(log.Fields{"task_id": env.ID, "url": url}).Debug("Sending task")

	// 3. Execute Request
	httpResponse, err := c.dispatch.Do(httpRequest)
	if err != nil {
		return nil, classifyTransportError(ctx, baseURL, err)
	}
	defer httpResponse.Body.Close()

	// 4. Check HTTP Status Code
	if httpResponse.StatusCode != http.StatusOK {
		preview, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 1024))
		msg := fmt.Sprintf("agent %s returned %d %s", baseURL, httpResponse.StatusCode, http.StatusText(httpResponse.StatusCode))
		if len(preview) > 0 {
			msg += fmt.Sprintf(" (body preview: %s)", strings.TrimSpace(string(preview)))
		}
		if httpResponse.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", a2a.ErrBadRequest, msg)
		}
		return nil, fmt.Errorf("%w: %s", a2a.ErrConnectionLost, msg)
	}

	// 5. Decode. A body cut short mid-read is a lost connection; a body
	// that arrived whole but does not parse carries no reply.
	data, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, baseURL, err)
	}
	var taskResp a2a.TaskResponse
	if err := json.Unmarshal(data, &taskResp); err != nil {
		return nil, fmt.Errorf("%w: undecodable response from %s: %v", a2a.ErrNoReply, baseURL, err)
	}

	log.WithFields(log.Fields{"task_id": taskResp.ID, "state": taskResp.Status.State}).Debug("Received task response")
	return &taskResp, nil
}

// Dispatch implements the Client interface.
func (c *httpClient) Dispatch(ctx context.Context, baseURL, text string) (*a2a.TaskResponse, error) {
	return c.SendTask(ctx, baseURL, a2a.NewTextEnvelope(uuid.NewString(), a2a.RoleUser, text))
}

func classifyTransportError(ctx context.Context, baseURL string, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return fmt.Errorf("request to %s canceled: %w", baseURL, ctx.Err())
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: request to the agent at %s timed out: %v", a2a.ErrTimeout, baseURL, err)
	}
	return fmt.Errorf("%w: lost connection to the agent at %s: %v", a2a.ErrConnectionLost, baseURL, err)
}
