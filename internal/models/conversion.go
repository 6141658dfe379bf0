// internal/models/conversion.go
package models

import (
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
)

// TaskModelToA2A renders a journal entry in wire form. Tasks that have not
// finished yet carry only the original message.
func TaskModelToA2A(model *Task) *a2a.TaskResponse {
	if model == nil {
		return nil
	}
	resp := &a2a.TaskResponse{
		ID:       model.ID,
		Status:   model.Status,
		Messages: []a2a.Message{model.Request},
	}
	if model.Reply != nil {
		resp.Messages = append(resp.Messages, *model.Reply)
	}
	return resp
}

// ApplyResponse copies the outcome of a handled task into the model.
func ApplyResponse(model *Task, resp *a2a.TaskResponse) {
	if model == nil || resp == nil {
		return
	}
	model.Status = resp.Status
	if len(resp.Messages) > 1 {
		reply := resp.Messages[len(resp.Messages)-1]
		model.Reply = &reply
	}
}
