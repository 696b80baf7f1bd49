package mission

import (
	"errors"
	"fmt"
	"strings"

	"example.com/robot-bt/internal/agent"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Spec describes a declarative mission stored as YAML: where the robot
// should go and how it should drive.
type Spec struct {
	Name         string   `yaml:"name" validate:"required"`
	Description  string   `yaml:"description"`
	Destinations []string `yaml:"destinations" validate:"required,min=1"`
	Speed        float64  `yaml:"speed" validate:"omitempty,gt=0"`
}

// Parse converts the mission YAML into a validated Spec.
func Parse(raw string) (Spec, error) {
	var spec Spec
	if strings.TrimSpace(raw) == "" {
		return spec, errors.New("mission config is empty")
	}
	if err := yaml.Unmarshal([]byte(raw), &spec); err != nil {
		return spec, fmt.Errorf("parse mission config: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Validate checks required fields and that every destination names a
// known location.
func (s Spec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid mission: %w", err)
	}
	for _, name := range s.Destinations {
		if _, ok := agent.Locations[name]; !ok {
			return fmt.Errorf("unknown destination %q", name)
		}
	}
	return nil
}

// ToStartMission builds the command payload sent to agents.
func (s Spec) ToStartMission() agent.StartMissionData {
	return agent.StartMissionData{
		Destinations: append([]string(nil), s.Destinations...),
		Speed:        s.Speed,
	}
}
