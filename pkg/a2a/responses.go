// pkg/a2a/responses.go
package a2a

import (
	"fmt"
	"time"
)

// NewCompletedResponse echoes env.ID and appends the agent's reply.
func NewCompletedResponse(env TaskEnvelope, reply string) *TaskResponse {
	return newResponse(env, TaskStateCompleted, "", reply)
}

// NewFailedResponse reports a task that could not be carried out.
// The reason is placed both in the status and in the reply message so
// clients that only read messages still see it.
func NewFailedResponse(env TaskEnvelope, reason string) *TaskResponse {
	return newResponse(env, TaskStateFailed, reason, reason)
}

func newResponse(env TaskEnvelope, state TaskState, reason, reply string) *TaskResponse {
	now := time.Now().UTC()
	return &TaskResponse{
		ID: env.ID,
		Status: TaskStatus{
			State:     state,
			Timestamp: &now,
			Message:   reason,
		},
		Messages: []Message{
			env.Message,
			{Role: RoleAgent, Parts: []Part{{Text: reply}}},
		},
	}
}

// ExtractReply returns the concatenated text of the last message.
// It fails with ErrNoReply when the response is missing, has no messages,
// or did not complete.
func ExtractReply(resp *TaskResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: empty response", ErrNoReply)
	}
	if resp.Status.State != TaskStateCompleted {
		if resp.Status.Message != "" {
			return "", fmt.Errorf("%w: task %s is %s: %s", ErrNoReply, resp.ID, resp.Status.State, resp.Status.Message)
		}
		return "", fmt.Errorf("%w: task %s is %s", ErrNoReply, resp.ID, resp.Status.State)
	}
	if len(resp.Messages) == 0 {
		return "", fmt.Errorf("%w: task %s has no messages", ErrNoReply, resp.ID)
	}
	return resp.Messages[len(resp.Messages)-1].Text(), nil
}
