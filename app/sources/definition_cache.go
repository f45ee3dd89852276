package sources

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/mlevkov/iptv-catalog/app/catalog"
)

type DefinitionCache struct {
	sourcesDir string
	cache      map[string]*Definition
	mu         sync.RWMutex
}

func NewDefinitionCache(sourcesDir string) *DefinitionCache {
	return &DefinitionCache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Definition),
	}
}

// Run loads every definition file in the sources directory. A missing
// directory is not an error; sources can also be added through the API.
func (dc *DefinitionCache) Run() error {
	if _, err := os.Stat(dc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(dc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}
	yamlFiles, err := filepath.Glob(filepath.Join(dc.sourcesDir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to find YAML files: %w", err)
	}
	files = append(files, yamlFiles...)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

		def, err := dc.LoadDefinition(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source definition loaded", "source", name,
			"enabled", def.Settings.Enabled, "refresh_policy", def.Settings.RefreshPolicy)
	}

	return nil
}

// LoadDefinition reads and validates a single definition file and caches it.
func (dc *DefinitionCache) LoadDefinition(name string) (*Definition, error) {
	file := dc.definitionFilePath(name)
	def, err := dc.parseDefinition(file)
	if err != nil {
		return nil, err
	}

	def.Name = name

	if err := dc.validateDefinition(def); err != nil {
		return nil, fmt.Errorf("invalid definition %s: %w", file, err)
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.cache[def.Name] = def

	return def, nil
}

func (dc *DefinitionCache) GetDefinition(name string) (*Definition, error) {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	def, ok := dc.cache[name]
	if !ok {
		return nil, fmt.Errorf("source definition with name '%s' not found", name)
	}
	return def, nil
}

func (dc *DefinitionCache) GetDefinitions() map[string]*Definition {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	defsCopy := make(map[string]*Definition, len(dc.cache))
	for k, v := range dc.cache {
		defsCopy[k] = v
	}
	return defsCopy
}

func (dc *DefinitionCache) GetDefinitionCount() int {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return len(dc.cache)
}

func (dc *DefinitionCache) GetEnabledDefinitions() map[string]*Definition {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	enabled := make(map[string]*Definition)
	for k, v := range dc.cache {
		if v.Settings.Enabled {
			enabled[k] = v
		}
	}
	return enabled
}

func (dc *DefinitionCache) definitionFilePath(name string) string {
	ymlPath := filepath.Join(dc.sourcesDir, name+".yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath
	}
	return filepath.Join(dc.sourcesDir, name+".yaml")
}

func (dc *DefinitionCache) parseDefinition(file string) (*Definition, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if def.Settings.RefreshPolicy == "" {
		def.Settings.RefreshPolicy = string(catalog.RefreshManual)
	}
	if def.Settings.HealthThreshold == 0 {
		def.Settings.HealthThreshold = catalog.DefaultHealthThreshold
	}

	return &def, nil
}

func (dc *DefinitionCache) validateDefinition(def *Definition) error {
	if def.URL == "" && def.File == "" {
		return fmt.Errorf("either url or file is required")
	}
	if def.URL != "" && def.File != "" {
		return fmt.Errorf("url and file are mutually exclusive")
	}

	switch catalog.RefreshPolicy(def.Settings.RefreshPolicy) {
	case catalog.RefreshManual, catalog.RefreshHourly, catalog.RefreshDaily, catalog.RefreshWeekly:
	default:
		return fmt.Errorf("unknown refresh policy: %s", def.Settings.RefreshPolicy)
	}

	if def.Settings.HealthThreshold < 0 {
		return fmt.Errorf("health threshold must be non-negative")
	}

	return nil
}
