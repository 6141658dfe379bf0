// pkg/a2a/constants.go
package a2a

const (
	// HTTP paths served by every agent.
	PathAgentCard = "/.well-known/agent.json"
	PathSendTask  = "/tasks/send"
	PathListTasks = "/tasks"
	PathGetTask   = "/tasks/{id}"
	PathHealth    = "/health"
	PathMetrics   = "/metrics"

	// Message Roles
	RoleUser  = "user"
	RoleAgent = "agent"

	// Markers embedded in task text. The receiving side scans for them
	// line by line; everything after the marker on that line is the value.
	MarkerProjectPath        = "PROJECT_PATH:"
	MarkerProjectDescription = "PROJECT_DESCRIPTION:"
)
