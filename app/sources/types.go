// Package sources loads declarative playlist source definitions from YAML
// files and keeps them cached for the scheduler and API.
package sources

// Definition declares one playlist source. Exactly one of URL or File is
// set; the definition name is derived from the filename.
type Definition struct {
	Name     string             // Derived from filename (without .yml extension)
	URL      string             `yaml:"url"`
	File     string             `yaml:"file"`
	Settings DefinitionSettings `yaml:"settings"`
}

type DefinitionSettings struct {
	Enabled         bool   `yaml:"enabled"`
	RefreshPolicy   string `yaml:"refresh_policy"` // manual, hourly, daily, weekly
	CheckHealth     bool   `yaml:"check_health"`
	HealthThreshold int    `yaml:"health_threshold"` // consecutive failures before dead
	UserAgent       string `yaml:"user_agent"`
}
