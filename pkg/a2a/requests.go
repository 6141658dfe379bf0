// pkg/a2a/requests.go
package a2a

import (
	"encoding/json"
	"fmt"
)

// NewTextEnvelope builds a single-part text envelope.
func NewTextEnvelope(id, role, text string) TaskEnvelope {
	return TaskEnvelope{
		ID: id,
		Message: Message{
			Role:  role,
			Parts: []Part{{Text: text}},
		},
	}
}

// rawEnvelope mirrors TaskEnvelope with pointers so that missing fields
// can be told apart from empty ones.
type rawEnvelope struct {
	ID      string `json:"id"`
	Message *struct {
		Role  string `json:"role"`
		Parts []struct {
			Text *string `json:"text"`
		} `json:"parts"`
	} `json:"message"`
}

// DecodeEnvelope parses and validates a task request body.
// Any structural problem is reported as ErrBadRequest.
func DecodeEnvelope(body []byte) (TaskEnvelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(body, &raw); err != nil {
		return TaskEnvelope{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if raw.Message == nil {
		return TaskEnvelope{}, fmt.Errorf("%w: message is required", ErrBadRequest)
	}
	if len(raw.Message.Parts) == 0 {
		return TaskEnvelope{}, fmt.Errorf("%w: message has no parts", ErrBadRequest)
	}
	if raw.Message.Parts[0].Text == nil {
		return TaskEnvelope{}, fmt.Errorf("%w: first part has no text", ErrBadRequest)
	}

	env := TaskEnvelope{
		ID:      raw.ID,
		Message: Message{Role: raw.Message.Role, Parts: make([]Part, 0, len(raw.Message.Parts))},
	}
	for _, p := range raw.Message.Parts {
		if p.Text == nil {
			continue
		}
		env.Message.Parts = append(env.Message.Parts, Part{Text: *p.Text})
	}
	return env, nil
}
