// pkg/a2a/schema_types.go
package a2a

import "time"

// --- Agent Card ---

// AgentCapabilities are advisory flags. Nothing negotiates on them.
type AgentCapabilities struct {
	Streaming         bool `json:"streaming"`
	PushNotifications bool `json:"pushNotifications"`
}

// AgentCard is the self-description served at PathAgentCard.
type AgentCard struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	URL          string            `json:"url"` // base URL, not the task endpoint
	Version      string            `json:"version"`
	Capabilities AgentCapabilities `json:"capabilities"`
}

// --- Message and Content Types ---

// Part is a single piece of message content. Only text parts exist.
type Part struct {
	Text string `json:"text"`
}

// Message is one turn of the exchange.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Text concatenates every part's text in order.
func (m Message) Text() string {
	switch len(m.Parts) {
	case 0:
		return ""
	case 1:
		return m.Parts[0].Text
	}
	var n int
	for _, p := range m.Parts {
		n += len(p.Text)
	}
	buf := make([]byte, 0, n)
	for _, p := range m.Parts {
		buf = append(buf, p.Text...)
	}
	return string(buf)
}

// --- Task Types ---

// TaskEnvelope is the request body of POST /tasks/send.
type TaskEnvelope struct {
	ID      string  `json:"id"`
	Message Message `json:"message"`
}

// TaskStatus carries the outcome of a task.
type TaskStatus struct {
	State     TaskState  `json:"state"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Message   string     `json:"message,omitempty"` // failure reason, if any
}

// TaskResponse is the reply to POST /tasks/send and GET /tasks/{id}.
// Messages holds the original message followed by the agent's reply.
type TaskResponse struct {
	ID       string     `json:"id"`
	Status   TaskStatus `json:"status"`
	Messages []Message  `json:"messages"`
}
