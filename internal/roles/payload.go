// internal/roles/payload.go
package roles

import (
	"fmt"
	"strings"

	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
)

// Payload is what the server recovers from marker-bearing task text.
type Payload struct {
	ProjectPath string
	Description string
	// Body is the text with the marker lines removed.
	Body string
}

// BuildPlanningRequest formats the bootstrap request sent to the planner.
func BuildPlanningRequest(projectPath, description string) string {
	return fmt.Sprintf("%s %s\n\n%s %s", a2a.MarkerProjectPath, projectPath, a2a.MarkerProjectDescription, strings.TrimSpace(description))
}

// ParsePayload extracts the project path and description markers. The
// path runs to the end of its line; the description runs to the end of
// the text. Missing markers leave the fields empty.
func ParsePayload(text string) Payload {
	var (
		p    Payload
		body []string
	)
	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(trimmed, a2a.MarkerProjectPath) && p.ProjectPath == "":
			p.ProjectPath = strings.TrimSpace(strings.TrimPrefix(trimmed, a2a.MarkerProjectPath))
		case strings.HasPrefix(trimmed, a2a.MarkerProjectDescription) && p.Description == "":
			first := strings.TrimSpace(strings.TrimPrefix(trimmed, a2a.MarkerProjectDescription))
			rest := strings.Join(lines[i+1:], "\n")
			p.Description = strings.TrimSpace(first + "\n" + rest)
			i = len(lines)
		default:
			body = append(body, lines[i])
		}
	}
	p.Body = strings.TrimSpace(strings.Join(body, "\n"))
	if p.Description == "" {
		p.Description = p.Body
	}
	return p
}
