package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/ScanGo/internal/logic/scan"
)

// MaxConfigFileBytes caps the size of a configuration file.
const MaxConfigFileBytes = 64 << 10

// ScannerConfig describes the instrument the calculator targets.
type ScannerConfig struct {
	Model   string `yaml:"model"`   // e.g., "RIEGL VZ-400"
	Pattern string `yaml:"pattern"` // e.g., "rectangular_fov"
}

// DefaultsConfig contains the starting acquisition parameters and generic settings.
type DefaultsConfig struct {
	PhiStartDeg       int     `yaml:"phi_start_deg"`       // horizontal start angle (default: 0°)
	PhiStopDeg        int     `yaml:"phi_stop_deg"`        // horizontal stop angle (default: 180°)
	PhiIncrementDeg   float64 `yaml:"phi_increment_deg"`   // Δφ (default: 0.05°)
	ThetaStartDeg     int     `yaml:"theta_start_deg"`     // vertical start angle (default: 30°)
	ThetaStopDeg      int     `yaml:"theta_stop_deg"`      // vertical stop angle (default: 100°)
	ThetaIncrementDeg float64 `yaml:"theta_increment_deg"` // Δθ (default: 0.05°)
	PulseFrequencyHz  int     `yaml:"pulse_frequency_hz"`  // 100000 or 300000 (default: 100000)
	DebugLevel        int     `yaml:"debug_level"`         // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
}

// WebConfig holds the embedded web UI settings.
type WebConfig struct {
	Port int `yaml:"port"` // port used by -web= (default: 8080)
}

// ChartConfig controls the sensitivity curve.
type ChartConfig struct {
	Samples int `yaml:"samples"` // points along the increment axis (default: 50)
}

// Config aggregates all application configuration.
type Config struct {
	Scanner  ScannerConfig  `yaml:"scanner"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Web      WebConfig      `yaml:"web"`
	Chart    ChartConfig    `yaml:"chart"`
}

// ValidateConfigPath checks that path names a .yaml file directly inside a
// configs/ directory. It does not check that the file exists.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config file must have .yaml extension, got %q", filepath.Ext(clean))
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config file must be inside a configs/ directory, got %q", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", len(data), MaxConfigFileBytes)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates the default inputs.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if cfg.Scanner.Model == "" {
		cfg.Scanner.Model = "RIEGL VZ-400"
	}
	if cfg.Scanner.Pattern == "" {
		cfg.Scanner.Pattern = "rectangular_fov"
	}
	if cfg.Scanner.Pattern != "rectangular_fov" {
		return nil, fmt.Errorf("scanner.pattern %q is not supported (only rectangular_fov)", cfg.Scanner.Pattern)
	}

	def := scan.DefaultInputs()
	// phi_start 0 is a legitimate angle, so only the other fields treat 0 as unset.
	if cfg.Defaults.PhiStopDeg == 0 {
		cfg.Defaults.PhiStopDeg = def.PhiStop
	}
	if cfg.Defaults.PhiIncrementDeg == 0 {
		cfg.Defaults.PhiIncrementDeg = def.PhiIncrement
	}
	if cfg.Defaults.ThetaStartDeg == 0 {
		cfg.Defaults.ThetaStartDeg = def.ThetaStart
	}
	if cfg.Defaults.ThetaStopDeg == 0 {
		cfg.Defaults.ThetaStopDeg = def.ThetaStop
	}
	if cfg.Defaults.ThetaIncrementDeg == 0 {
		cfg.Defaults.ThetaIncrementDeg = def.ThetaIncrement
	}
	if cfg.Defaults.PulseFrequencyHz == 0 {
		cfg.Defaults.PulseFrequencyHz = int(def.PulseFrequency)
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}

	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Web.Port < 0 || cfg.Web.Port > 65535 {
		return nil, fmt.Errorf("web.port must be 1-65535, got %d", cfg.Web.Port)
	}

	if cfg.Chart.Samples == 0 {
		cfg.Chart.Samples = 50
	}
	if cfg.Chart.Samples < 2 || cfg.Chart.Samples > 500 {
		return nil, fmt.Errorf("chart.samples must be between 2 and 500, got %d", cfg.Chart.Samples)
	}

	if v := scan.Validate(cfg.Inputs()); !v.OK() {
		return nil, fmt.Errorf("invalid default inputs: %s", strings.Join(v.Messages(), " "))
	}

	return &cfg, nil
}

// Inputs returns the configured default inputs.
func (c *Config) Inputs() scan.Inputs {
	return scan.Inputs{
		PhiStart:       c.Defaults.PhiStartDeg,
		PhiStop:        c.Defaults.PhiStopDeg,
		PhiIncrement:   c.Defaults.PhiIncrementDeg,
		ThetaStart:     c.Defaults.ThetaStartDeg,
		ThetaStop:      c.Defaults.ThetaStopDeg,
		ThetaIncrement: c.Defaults.ThetaIncrementDeg,
		PulseFrequency: scan.PulseFrequency(c.Defaults.PulseFrequencyHz),
	}
}

// PhiTotalDeg returns the default horizontal range in degrees.
func (c *Config) PhiTotalDeg() float64 {
	return float64(c.Defaults.PhiStopDeg - c.Defaults.PhiStartDeg)
}

// ThetaTotalDeg returns the default vertical range in degrees.
func (c *Config) ThetaTotalDeg() float64 {
	return float64(c.Defaults.ThetaStopDeg - c.Defaults.ThetaStartDeg)
}

// YAML returns the effective configuration (defaults applied) as YAML.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
