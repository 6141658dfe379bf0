// pkg/a2a/enums.go
package a2a

import (
	"encoding/json"
	"fmt"
)

// TaskState represents the different states a task can be in.
// The set is closed: anything else on the wire is rejected at decode time.
type TaskState string

const (
	TaskStatePending    TaskState = "pending"
	TaskStateInProgress TaskState = "in_progress"
	TaskStateCompleted  TaskState = "completed"
	TaskStateFailed     TaskState = "failed"
)

// Valid reports whether s is one of the known states.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStatePending, TaskStateInProgress, TaskStateCompleted, TaskStateFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are expected from s.
func (s TaskState) Terminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed
}

// ParseTaskState converts a wire value into a TaskState.
func ParseTaskState(v string) (TaskState, error) {
	s := TaskState(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown task state %q", v)
	}
	return s, nil
}

// UnmarshalJSON implements json.Unmarshaler and enforces the closed set.
func (s *TaskState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTaskState(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
