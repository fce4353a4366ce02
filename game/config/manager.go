package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/online-games/game/engine"
	"github.com/wricardo/online-games/game/service"
)

// DefaultPresetID is used for matches created without a preset
const DefaultPresetID = "classic_chess"

var (
	ErrConfigNotFound = service.ErrPresetNotFound
	ErrInvalidConfig  = errors.New("invalid preset")
)

// Manager loads match presets from a directory of JSON files and caches
// them. Every registered game type is also available as a preset named
// after the type, unless a file of that name overrides it.
type Manager struct {
	configDir     string
	registry      *engine.Registry
	defaultPreset *service.Preset
	configs       map[string]*service.Preset
	mu            sync.RWMutex
}

// NewManager creates a new preset manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		registry:  engine.DefaultRegistry(),
		configs:   make(map[string]*service.Preset),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default preset: %w", err)
	}
	return m, nil
}

// LoadConfig loads a preset by id. Both "blitz_chess" and "blitz_chess.json"
// name the same file.
func (m *Manager) LoadConfig(name string) (*service.Preset, error) {
	id := strings.TrimSuffix(name, ".json")
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, name)
	}

	m.mu.RLock()
	if preset, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return preset, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if preset, exists := m.configs[id]; exists {
		return preset, nil
	}

	data, err := os.ReadFile(filepath.Join(m.configDir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			if preset := m.implicitPreset(id); preset != nil {
				preset.ID = id
				m.configs[id] = preset
				return preset, nil
			}
			return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, id)
		}
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}

	var preset service.Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, id, err)
	}
	if err := m.validate(&preset); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, id, err)
	}
	if preset.Name == "" {
		preset.Name = id
	}
	preset.ID = id

	m.configs[id] = &preset
	return &preset, nil
}

// ListConfigs returns every valid file preset followed by the implicit
// per-game presets, sorted by id
func (m *Manager) ListConfigs() ([]*service.PresetInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var presets []*service.PresetInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		preset, err := m.LoadConfig(id)
		if err != nil {
			// Skip invalid presets
			continue
		}
		seen[id] = true
		presets = append(presets, presetInfo(entry.Name(), id, preset))
	}

	for _, gt := range m.registry.Types() {
		id := string(gt)
		if seen[id] {
			continue
		}
		preset, err := m.LoadConfig(id)
		if err != nil {
			continue
		}
		presets = append(presets, presetInfo("", id, preset))
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].PresetID < presets[j].PresetID })
	return presets, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *service.Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPreset
}

// SetDefault sets the default preset by id
func (m *Manager) SetDefault(name string) error {
	preset, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPreset = preset
	return nil
}

// RefreshCache drops cached presets so the next load rereads the files
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*service.Preset)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// SaveConfig validates and writes a preset to disk
func (m *Manager) SaveConfig(name string, preset *service.Preset) error {
	if preset == nil {
		return fmt.Errorf("%w: preset is nil", ErrInvalidConfig)
	}
	if err := m.validate(preset); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id := strings.TrimSuffix(name, ".json")
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: bad preset id %q", ErrInvalidConfig, name)
	}

	data, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, id+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}

	saved := *preset
	saved.ID = id
	if saved.Name == "" {
		saved.Name = id
	}
	m.mu.Lock()
	m.configs[id] = &saved
	m.mu.Unlock()

	return nil
}

// loadDefaultConfig picks DefaultPresetID, then the first listed preset
func (m *Manager) loadDefaultConfig() error {
	preset, err := m.LoadConfig(DefaultPresetID)
	if err != nil {
		presets, listErr := m.ListConfigs()
		if listErr != nil {
			return listErr
		}
		if len(presets) == 0 {
			return fmt.Errorf("%w: no presets available", ErrConfigNotFound)
		}
		if preset, err = m.LoadConfig(presets[0].PresetID); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.defaultPreset = preset
	m.mu.Unlock()
	return nil
}

func (m *Manager) validate(p *service.Preset) error {
	if _, err := m.registry.Get(p.GameType); err != nil {
		return err
	}
	if p.TimeLimitSeconds < 0 {
		return fmt.Errorf("time_limit_seconds must not be negative, got %d", p.TimeLimitSeconds)
	}
	return nil
}

// implicitPreset returns the untimed preset for a bare game type
func (m *Manager) implicitPreset(id string) *service.Preset {
	gt := engine.GameType(id)
	if _, err := m.registry.Get(gt); err != nil {
		return nil
	}
	return &service.Preset{
		Name:        strings.ReplaceAll(id, "_", " "),
		Description: "Untimed casual " + strings.ReplaceAll(id, "_", " "),
		GameType:    gt,
	}
}

func presetInfo(filename, id string, p *service.Preset) *service.PresetInfo {
	return &service.PresetInfo{
		Filename:         filename,
		PresetID:         id,
		Name:             p.Name,
		Description:      p.Description,
		GameType:         p.GameType,
		TimeLimitSeconds: p.TimeLimitSeconds,
		Ranked:           p.Ranked,
	}
}
