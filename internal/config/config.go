// Package config implements the two-layer settings file (spec.md §9,
// SPEC_FULL.md §4.10), grounded on the teacher's internal/config Manager
// merge pattern: a user-wide file and a project-local file, merged
// project-overrides-user-overrides-default.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds the settings understood by a smudgyd session. Zero values
// mean "not set at this layer" so mergeConfigs can tell a layer's real
// value apart from its absence.
type Config struct {
	ScrollbackCapacity int      `json:"scrollback_capacity,omitempty"`
	PromptIdleMs       int      `json:"prompt_idle_ms,omitempty"`
	ScriptBudgetMs     int      `json:"script_budget_ms,omitempty"`
	PatternBackend     string   `json:"pattern_backend,omitempty"` // auto|automaton|iterating
	MapStoreDSN        string   `json:"map_store_dsn,omitempty"`
	ControlSocketPath  string   `json:"control_socket_path,omitempty"`
	UIFeedBindAddr     string   `json:"ui_feed_bind_addr,omitempty"`
	StartupScripts     []string `json:"startup_scripts,omitempty"`
}

type Manager struct {
	userConfig    *Config
	projectConfig *Config
	merged        *Config
}

func NewManager() *Manager {
	return &Manager{
		userConfig:    &Config{},
		projectConfig: &Config{},
		merged:        &Config{},
	}
}

func (m *Manager) Load(userConfigDir, projectDir string) error {
	// Load user config
	userConfigPath := filepath.Join(userConfigDir, "settings.json")
	if err := m.loadConfig(userConfigPath, m.userConfig); err != nil {
		return err
	}

	// Load project config
	projectConfigPath := filepath.Join(projectDir, ".smudgy", "settings.json")
	if err := m.loadConfig(projectConfigPath, m.projectConfig); err != nil {
		return err
	}

	// Merge configs (project overrides user)
	m.mergeConfigs()

	return nil
}

func (m *Manager) loadConfig(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Config file doesn't exist, use defaults
		}
		return err
	}

	return json.Unmarshal(data, config)
}

func (m *Manager) mergeConfigs() {
	m.merged = &Config{
		ScrollbackCapacity: m.getIntValue(m.userConfig.ScrollbackCapacity, m.projectConfig.ScrollbackCapacity, 10000),
		PromptIdleMs:       m.getIntValue(m.userConfig.PromptIdleMs, m.projectConfig.PromptIdleMs, 250),
		ScriptBudgetMs:     m.getIntValue(m.userConfig.ScriptBudgetMs, m.projectConfig.ScriptBudgetMs, 500),
		PatternBackend:     m.getStringValue(m.userConfig.PatternBackend, m.projectConfig.PatternBackend, "auto"),
		MapStoreDSN:        m.getStringValue(m.userConfig.MapStoreDSN, m.projectConfig.MapStoreDSN, "file:smudgy-map.db"),
		ControlSocketPath:  m.getStringValue(m.userConfig.ControlSocketPath, m.projectConfig.ControlSocketPath, "/tmp/smudgyd.sock"),
		UIFeedBindAddr:     m.getStringValue(m.userConfig.UIFeedBindAddr, m.projectConfig.UIFeedBindAddr, "127.0.0.1:7890"),
		StartupScripts:     m.getStringSliceValue(m.userConfig.StartupScripts, m.projectConfig.StartupScripts),
	}
}

func (m *Manager) getStringValue(user, project, defaultValue string) string {
	if project != "" {
		return project
	}
	if user != "" {
		return user
	}
	return defaultValue
}

func (m *Manager) getIntValue(user, project, defaultValue int) int {
	if project != 0 {
		return project
	}
	if user != 0 {
		return user
	}
	return defaultValue
}

// getStringSliceValue concatenates layers rather than overriding: project
// startup scripts supplement the user's, they don't replace them.
func (m *Manager) getStringSliceValue(user, project []string) []string {
	if len(user) == 0 && len(project) == 0 {
		return nil
	}
	out := make([]string, 0, len(user)+len(project))
	out = append(out, user...)
	out = append(out, project...)
	return out
}

func (m *Manager) Get() *Config {
	return m.merged
}

func (m *Manager) UserStartupScripts() []string    { return m.userConfig.StartupScripts }
func (m *Manager) ProjectStartupScripts() []string { return m.projectConfig.StartupScripts }

func (m *Manager) SaveUserConfig(userConfigDir string) error {
	configPath := filepath.Join(userConfigDir, "settings.json")

	// Ensure directory exists
	if err := os.MkdirAll(userConfigDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m.userConfig, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

func (m *Manager) SaveProjectConfig(projectDir string) error {
	smudgyDir := filepath.Join(projectDir, ".smudgy")
	configPath := filepath.Join(smudgyDir, "settings.json")

	// Ensure directory exists
	if err := os.MkdirAll(smudgyDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m.projectConfig, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
