package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/restbench/restbench/internal/types"
)

// Workspace mirrors the on-disk environments document: global environments
// with an active selection, plus per-collection sub-environments.
type Workspace struct {
	ActiveEnvironment string              `json:"activeEnvironment,omitempty"`
	Environments      []types.Environment `json:"environments,omitempty"`
	Collections       []types.Collection  `json:"collections,omitempty"`
}

// Manager loads environments and answers the runner's variable lookups.
// It implements runner.EnvironmentSource.
type Manager struct {
	workspace Workspace
	overlay   map[string]string // .env values, merged over the active global scope
}

// NewManager creates an empty manager; Load and LoadEnvFile populate it.
func NewManager() *Manager {
	return &Manager{}
}

// Load reads the workspace environments file. A missing file is not an
// error - the manager just answers with empty scopes.
func (m *Manager) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.workspace = Workspace{}
			return nil
		}
		return fmt.Errorf("failed to read environments file: %w", err)
	}

	var ws Workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		return fmt.Errorf("failed to parse environments file: %w", err)
	}

	m.workspace = ws
	return nil
}

// SetWorkspace installs an in-memory workspace. Used by callers that keep
// their environments elsewhere (e.g. inside a collection file).
func (m *Manager) SetWorkspace(ws Workspace) {
	m.workspace = ws
}

// LoadEnvFile overlays key=value pairs from a dotenv file on top of the
// global scope. Later calls replace the overlay.
func (m *Manager) LoadEnvFile(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	m.overlay = values
	return nil
}

// GlobalVariables returns the active environment's variables, defaulting to
// the first environment when no active one is set or the active one was
// deleted. The .env overlay wins on key collisions.
func (m *Manager) GlobalVariables() (map[string]string, error) {
	env := pickEnvironment(m.workspace.Environments, m.workspace.ActiveEnvironment)

	merged := make(map[string]string)
	if env != nil {
		for k, v := range env.Variables {
			merged[k] = v
		}
	}
	for k, v := range m.overlay {
		merged[k] = v
	}
	return merged, nil
}

// CollectionVariables returns the variables of the collection's active
// sub-environment, falling back to its first sub-environment.
func (m *Manager) CollectionVariables(collectionID string) (map[string]string, error) {
	for _, c := range m.workspace.Collections {
		if c.ID != collectionID {
			continue
		}
		env := pickEnvironment(c.Environments, c.ActiveEnvironment)
		if env == nil {
			return map[string]string{}, nil
		}
		out := make(map[string]string, len(env.Variables))
		for k, v := range env.Variables {
			out[k] = v
		}
		return out, nil
	}
	return map[string]string{}, fmt.Errorf("unknown collection %q", collectionID)
}

// pickEnvironment selects by id, falling back to the first entry. Covers
// both "no active set" and "active was deleted".
func pickEnvironment(envs []types.Environment, activeID string) *types.Environment {
	if len(envs) == 0 {
		return nil
	}
	if activeID != "" {
		for i := range envs {
			if envs[i].ID == activeID {
				return &envs[i]
			}
		}
	}
	return &envs[0]
}
