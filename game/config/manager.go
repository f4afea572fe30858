package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/evtaxi/game/engine"
	"github.com/wricardo/mcp-training/evtaxi/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = engine.ErrInvalidConfig
)

// DefaultConfigID is the config loaded when a session names none
const DefaultConfigID = "classic"

// supported file extensions, in lookup order
var extensions = []string{".json", ".yaml", ".yml"}

// Manager handles episode configuration loading and caching
type Manager struct {
	configDir     string
	defaultID     string
	defaultConfig *engine.EnvConfig
	configs       map[string]*engine.EnvConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.EnvConfig),
	}

	m.loadDefaultConfig()

	return m, nil
}

// LoadConfig loads a configuration by ID (file name without extension).
// The built-in classic configuration is returned for DefaultConfigID when no
// such file exists.
func (m *Manager) LoadConfig(name string) (*engine.EnvConfig, error) {
	name = configID(name)

	m.mu.RLock()
	if config, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[name]; exists {
		return config, nil
	}

	if !validConfigID(name) {
		return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, name)
	}

	path, ok := m.findFile(name)
	if !ok {
		if name == DefaultConfigID {
			return engine.DefaultConfig(), nil
		}
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := engine.DecodeConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if config.Name == "" {
		config.Name = name
	}

	if err := engine.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	m.configs[name] = config
	return config, nil
}

// ListConfigs returns information about all loadable configurations
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !hasConfigExt(entry.Name()) {
			continue
		}

		name := configID(entry.Name())
		if seen[name] {
			continue
		}

		config, err := m.LoadConfig(name)
		if err != nil {
			// Skip invalid configs
			continue
		}
		seen[name] = true

		configs = append(configs, &service.ConfigInfo{
			Filename:      entry.Name(),
			ConfigID:      name,
			Name:          config.Name,
			Description:   config.Description,
			GridSize:      config.GridSize,
			MaxBattery:    config.MaxBattery,
			ObstacleCount: config.ObstacleCount,
			ChargerCount:  config.ChargerCount,
		})
	}

	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.EnvConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// DefaultID returns the ID of the default configuration
func (m *Manager) DefaultID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID
}

// SetDefault sets the default configuration by ID
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = configID(name)
	m.defaultConfig = config
	return nil
}

// RefreshCache drops all cached configurations and reloads the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.configs = make(map[string]*engine.EnvConfig)
	m.mu.Unlock()

	m.loadDefaultConfig()
}

// loadDefaultConfig picks classic, then the first valid config on disk, then
// the built-in default.
func (m *Manager) loadDefaultConfig() {
	id, config := m.pickDefault()

	m.mu.Lock()
	m.defaultID = id
	m.defaultConfig = config
	m.mu.Unlock()
}

func (m *Manager) pickDefault() (string, *engine.EnvConfig) {
	if _, ok := m.findFile(DefaultConfigID); ok {
		if config, err := m.LoadConfig(DefaultConfigID); err == nil {
			return DefaultConfigID, config
		}
	}

	if configs, err := m.ListConfigs(); err == nil {
		for _, info := range configs {
			if config, err := m.LoadConfig(info.ConfigID); err == nil {
				return info.ConfigID, config
			}
		}
	}

	return DefaultConfigID, engine.DefaultConfig()
}

// SaveConfig validates a configuration and writes it as <name>.json
func (m *Manager) SaveConfig(name string, config *engine.EnvConfig) error {
	name = configID(name)
	if !validConfigID(name) {
		return fmt.Errorf("%w: config id %q must use letters, digits, '-' or '_'", ErrInvalidConfig, name)
	}

	if err := engine.ValidateConfig(config); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, name+".json")
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = config
	m.mu.Unlock()

	return nil
}

// findFile locates <name>.json, <name>.yaml or <name>.yml in the config dir
func (m *Manager) findFile(name string) (string, bool) {
	for _, ext := range extensions {
		path := filepath.Join(m.configDir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// configID strips a known extension from a file or config name
func configID(name string) string {
	name = strings.TrimSpace(name)
	for _, ext := range extensions {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

func hasConfigExt(filename string) bool {
	return configID(filename) != filename
}

func validConfigID(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
