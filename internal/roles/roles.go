// internal/roles/roles.go
package roles

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/kathir-ks/a2a-ledger/internal/ledger"
	"github.com/kathir-ks/a2a-ledger/pkg/a2a"
	"gopkg.in/yaml.v3"
)

// Role names.
const (
	Planning = "planning"
	Frontend = "frontend"
	Backend  = "backend"
)

// ErrUnknownRole is returned by Lookup for names not in the profile set.
var ErrUnknownRole = errors.New("unknown role")

//go:embed roles.yaml
var builtin []byte

// CardInfo holds the static part of an agent card.
type CardInfo struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

// Profile describes everything role-specific: how the role's agent
// introduces itself, which ledger headings it owns, and the prompts used
// on both sides of a dispatch.
type Profile struct {
	Name           string   `yaml:"name"`
	Label          string   `yaml:"label"`
	Port           int      `yaml:"port"`
	Card           CardInfo `yaml:"card"`
	Synonyms       []string `yaml:"synonyms"`
	SystemPrompt   string   `yaml:"system_prompt"`
	ServerPrompt   string   `yaml:"server_prompt"`
	DispatchPrompt string   `yaml:"dispatch_prompt"`

	serverTmpl   *template.Template
	dispatchTmpl *template.Template
}

type profileFile struct {
	Roles []*Profile `yaml:"roles"`
}

var (
	loadOnce sync.Once
	profiles map[string]*Profile
	loadErr  error
)

// Parse decodes a YAML profile set and compiles its templates.
func Parse(data []byte) (map[string]*Profile, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode role profiles: %w", err)
	}
	out := make(map[string]*Profile, len(f.Roles))
	for _, p := range f.Roles {
		if p.Name == "" {
			return nil, errors.New("role profile without a name")
		}
		if len(p.Synonyms) == 0 {
			return nil, fmt.Errorf("role %q has no heading synonyms", p.Name)
		}
		if p.Label == "" {
			p.Label = p.Name
		}
		var err error
		if p.serverTmpl, err = template.New(p.Name + "-server").Option("missingkey=error").Parse(p.ServerPrompt); err != nil {
			return nil, fmt.Errorf("role %q server prompt: %w", p.Name, err)
		}
		if p.dispatchTmpl, err = template.New(p.Name + "-dispatch").Option("missingkey=error").Parse(p.DispatchPrompt); err != nil {
			return nil, fmt.Errorf("role %q dispatch prompt: %w", p.Name, err)
		}
		out[p.Name] = p
	}
	return out, nil
}

func load() (map[string]*Profile, error) {
	loadOnce.Do(func() {
		profiles, loadErr = Parse(builtin)
	})
	return profiles, loadErr
}

// Lookup returns the built-in profile for name.
func Lookup(name string) (*Profile, error) {
	all, err := load()
	if err != nil {
		return nil, err
	}
	p, ok := all[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownRole, name, strings.Join(Names(), ", "))
	}
	return p, nil
}

// Names lists the built-in role names in sorted order.
func Names() []string {
	all, _ := load()
	names := make([]string, 0, len(all))
	for n := range all {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Matcher returns the heading matcher for this role's ledger sections.
func (p *Profile) Matcher() ledger.Synonyms {
	return ledger.Synonyms(p.Synonyms)
}

// AgentCard builds the card this role's server advertises at baseURL.
func (p *Profile) AgentCard(baseURL string) a2a.AgentCard {
	return a2a.AgentCard{
		Name:         p.Card.Name,
		Description:  p.Card.Description,
		URL:          strings.TrimRight(baseURL, "/"),
		Version:      p.Card.Version,
		Capabilities: a2a.AgentCapabilities{Streaming: false, PushNotifications: false},
	}
}

// PromptData feeds both prompt templates.
type PromptData struct {
	Text        string // task text received by the server
	Description string // project description (planning bootstrap)
	ProjectPath string
	PlanFile    string
	LedgerFile  string
	TaskList    string
}

// RenderServerPrompt wraps incoming task text for the completion subsystem.
func (p *Profile) RenderServerPrompt(data PromptData) (string, error) {
	return render(p.serverTmpl, data)
}

// RenderDispatchPrompt builds the text a driver sends for pending tasks.
func (p *Profile) RenderDispatchPrompt(data PromptData) (string, error) {
	return render(p.dispatchTmpl, data)
}

func render(t *template.Template, data PromptData) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(sb.String()) + "\n", nil
}

// FormatTaskList renders pending tasks as "Uncompleted <label> tasks:" followed
// by a bullet per task. Continuation lines are indented under their bullet.
func (p *Profile) FormatTaskList(tasks []ledger.Task) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Uncompleted %s tasks:\n\n", p.Label)
	for i, t := range tasks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(strings.ReplaceAll(t.Text, "\n", "\n  "))
	}
	return sb.String()
}
