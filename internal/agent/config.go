package agent

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the agent's runtime configuration.
type Config struct {
	AgentID          string        `yaml:"agent_id"`
	MQTTBroker       string        `yaml:"mqtt_broker"`
	TickInterval     time.Duration `yaml:"tick_interval"`
	StatusInterval   time.Duration `yaml:"status_interval"`
	Speed            float64       `yaml:"speed"`
	DischargeRate    float64       `yaml:"discharge_rate"`
	ChargeRate       float64       `yaml:"charge_rate"`
	BatteryThreshold float64       `yaml:"battery_threshold"`
	Destinations     []string      `yaml:"destinations"`
}

// LoadConfig reads and parses a YAML config file, applying defaults for
// unset tuning knobs.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config file %s not found", path)
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, cfg.validate()
}

func (c *Config) applyDefaults() {
	if c.TickInterval == 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	if c.StatusInterval == 0 {
		c.StatusInterval = time.Second
	}
	if c.Speed == 0 {
		c.Speed = 0.2
	}
	if c.DischargeRate == 0 {
		c.DischargeRate = 0.02
	}
	if c.ChargeRate == 0 {
		c.ChargeRate = 0.2
	}
	if c.BatteryThreshold == 0 {
		c.BatteryThreshold = 0.2
	}
}

func (c Config) validate() error {
	if c.AgentID == "" {
		return errors.New("config missing agent_id")
	}
	if c.TickInterval < 0 || c.StatusInterval < 0 {
		return errors.New("intervals must be positive")
	}
	if c.BatteryThreshold <= 0 || c.BatteryThreshold >= 1 {
		return fmt.Errorf("battery_threshold %v outside (0, 1)", c.BatteryThreshold)
	}
	for _, name := range c.Destinations {
		if _, ok := Locations[name]; !ok {
			return fmt.Errorf("unknown destination %q", name)
		}
	}
	return nil
}
