package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/lsp/core/metrics"
	"github.com/kilianp07/lsp/core/scheduler"
	"github.com/kilianp07/lsp/infra/mqtt"
	"github.com/kilianp07/lsp/infra/planstore"
)

// EnvPrefix marks environment variables overriding file values. A double
// underscore separates nesting levels: LSP_SCHEDULER__BUFFER_TIME_SECONDS.
const EnvPrefix = "LSP_"

type Config struct {
	Scheduler scheduler.Config `json:"scheduler"`
	Scenario  ScenarioConfig   `json:"scenario"`
	Export    ExportConfig     `json:"export"`
	Metrics   metrics.Config   `json:"metrics"`
	PlanStore planstore.Config `json:"plan_store"`
	Logging   LoggingConfig    `json:"logging"`
	MQTT      mqtt.Config      `json:"mqtt"`
	Sentry    SentryConfig     `json:"sentry"`
}

// Load reads a YAML or JSON file, applies environment overrides and
// defaults, and validates every section. Relative paths are resolved against
// the directory of the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.resolvePaths(filepath.Dir(path))
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Scheduler.SetDefaults()
	c.Scenario.SetDefaults()
	c.Export.SetDefaults()
	c.Logging.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Scenario.Validate(); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := c.PlanStore.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return c.MQTT.Validate()
}

func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{
		&c.Scenario.LSP,
		&c.Scenario.VehicleTypes,
		&c.Scenario.Network,
		&c.PlanStore.Path,
		&c.Logging.File,
	} {
		if *p != "" && !filepath.IsAbs(*p) && !strings.HasPrefix(*p, "file:") {
			*p = filepath.Join(dir, *p)
		}
	}
}
