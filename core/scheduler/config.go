package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config defines the planning parameters of a scheduling run.
type Config struct {
	// BufferTimeSeconds is added to the end of a shipment's last plan element
	// when it is forwarded to the next chain element.
	BufferTimeSeconds float64 `json:"buffer_time_seconds" yaml:"buffer_time_seconds" koanf:"buffer_time_seconds"`
	// Optimizer names the routing optimizer of collection and distribution
	// carriers.
	Optimizer string `json:"optimizer" yaml:"optimizer" koanf:"optimizer"`
	// VerifyConservation runs the shipment conservation check around every
	// resource.
	VerifyConservation *bool `json:"verify_conservation,omitempty" yaml:"verify_conservation,omitempty" koanf:"verify_conservation"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Optimizer == "" {
		c.Optimizer = "nearest_neighbor"
	}
	if c.VerifyConservation == nil {
		on := true
		c.VerifyConservation = &on
	}
}

// Validate checks the buffer time and optimizer name.
func (c Config) Validate() error {
	if err := ValidateBufferTime(c.BufferTimeSeconds); err != nil {
		return err
	}
	switch c.Optimizer {
	case "", "nearest_neighbor":
	default:
		return fmt.Errorf("unknown optimizer %q", c.Optimizer)
	}
	return nil
}

// ConservationEnabled reports whether conservation checks are on.
func (c Config) ConservationEnabled() bool {
	return c.VerifyConservation == nil || *c.VerifyConservation
}

// LoadConfig loads Config from a JSON or YAML file.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "yaml", "yml", "json":
		return DecodeConfig(f, ext)
	default:
		return Config{}, fmt.Errorf("unsupported config format: .%s", ext)
	}
}

// DecodeConfig reads from r to decode a Config, applies defaults and
// validates it.
func DecodeConfig(r io.Reader, format string) (Config, error) {
	var cfg Config
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
			return cfg, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}
