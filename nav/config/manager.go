package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultName is the plan loaded as default when present
const DefaultName = "indoor"

var extensions = []string{".json", ".yaml", ".yml"}

// Info summarizes a plan file
type Info struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	POIs        int    `json:"pois"`
	Targeting   string `json:"targeting"`
}

// Manager handles floor plan loading and caching
type Manager struct {
	configDir     string
	defaultConfig *FloorPlan
	configs       map[string]*FloorPlan
	mu            sync.RWMutex
}

// NewManager creates a configuration manager over configDir
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*FloorPlan),
	}
	m.defaultConfig = m.pickDefault()
	return m, nil
}

// LoadConfig loads a plan by name. The name may carry an extension;
// otherwise .json, .yaml and .yml are tried in that order.
func (m *Manager) LoadConfig(name string) (*FloorPlan, error) {
	id := configID(name)

	m.mu.RLock()
	if fp, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return fp, nil
	}
	m.mu.RUnlock()

	path, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	fp, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := Validate(fp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another loader may have won the race
	if cached, exists := m.configs[id]; exists {
		return cached, nil
	}
	m.configs[id] = fp
	return fp, nil
}

// ListConfigs returns information about every valid plan in the directory
func (m *Manager) ListConfigs() ([]*Info, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var infos []*Info
	for _, entry := range entries {
		if entry.IsDir() || !hasPlanExtension(entry.Name()) {
			continue
		}

		fp, err := m.LoadConfig(entry.Name())
		if err != nil {
			// Skip invalid configs
			continue
		}

		spec := fp.GridSpec()
		infos = append(infos, &Info{
			Filename:    entry.Name(),
			ConfigID:    configID(entry.Name()),
			Name:        fp.Name,
			Description: fp.Description,
			Rows:        dimension(spec.LengthM, spec.Resolution),
			Cols:        dimension(spec.WidthM, spec.Resolution),
			POIs:        len(fp.POIs),
			Targeting:   fp.Targeting,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ConfigID < infos[j].ConfigID })
	return infos, nil
}

// GetDefault returns the default plan
func (m *Manager) GetDefault() *FloorPlan {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default plan by name
func (m *Manager) SetDefault(name string) error {
	fp, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = fp
	return nil
}

// RefreshCache drops cached plans and re-selects the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.configs = make(map[string]*FloorPlan)
	m.mu.Unlock()

	def := m.pickDefault()

	m.mu.Lock()
	m.defaultConfig = def
	m.mu.Unlock()
}

// SaveConfig validates fp and writes it to the config directory. The
// format follows the extension of name, JSON when there is none.
func (m *Manager) SaveConfig(name string, fp *FloorPlan) error {
	if err := Validate(fp); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	filename := name
	if !hasPlanExtension(filename) {
		filename = name + ".json"
	}

	data, err := Marshal(fp, formatOf(filename))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.configDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[configID(filename)] = fp
	m.mu.Unlock()
	return nil
}

// pickDefault prefers DefaultName, then the first valid plan, then the
// built-in plan
func (m *Manager) pickDefault() *FloorPlan {
	if fp, err := m.LoadConfig(DefaultName); err == nil {
		return fp
	}
	infos, err := m.ListConfigs()
	if err == nil && len(infos) > 0 {
		if fp, err := m.LoadConfig(infos[0].Filename); err == nil {
			return fp
		}
	}
	return Default()
}

func (m *Manager) resolve(name string) (string, error) {
	if hasPlanExtension(name) {
		path := filepath.Join(m.configDir, name)
		if _, err := os.Stat(path); err != nil {
			return "", ErrConfigNotFound
		}
		return path, nil
	}
	for _, ext := range extensions {
		path := filepath.Join(m.configDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

func hasPlanExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func configID(name string) string {
	if hasPlanExtension(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

func dimension(meters, resolution float64) int {
	if resolution <= 0 {
		return 0
	}
	return int(meters/resolution + 1e-9)
}
