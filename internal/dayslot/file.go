package dayslot

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const timeLayout = "15:04:05"

// FileConfig is the root of day_slots.yaml.
type FileConfig struct {
	DaySlots []Type `yaml:"day_slots"`
}

// LoadFile loads and validates a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		path = "configs/day_slots.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read day slots config: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse day slots config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate day slots config: %w", err)
	}

	return New(cfg.DaySlots), nil
}

// Validate checks the configuration for errors.
func (c *FileConfig) Validate() error {
	if len(c.DaySlots) == 0 {
		return fmt.Errorf("no day slots defined")
	}

	ids := make(map[int]bool)
	names := make(map[string]bool)

	for i, t := range c.DaySlots {
		if t.ID <= 0 {
			return fmt.Errorf("day_slots[%d]: id must be positive, got %d", i, t.ID)
		}
		if ids[t.ID] {
			return fmt.Errorf("day_slots[%d]: duplicate id %d", i, t.ID)
		}
		ids[t.ID] = true

		if t.Name == "" {
			return fmt.Errorf("day_slots[%d]: name is required", i)
		}
		if names[t.Name] {
			return fmt.Errorf("day_slots[%d]: duplicate name '%s'", i, t.Name)
		}
		names[t.Name] = true

		start, err := time.Parse(timeLayout, t.DefaultStart)
		if err != nil {
			return fmt.Errorf("day_slots[%d].default_start: invalid format '%s', expected HH:MM:SS", i, t.DefaultStart)
		}
		end, err := time.Parse(timeLayout, t.DefaultEnd)
		if err != nil {
			return fmt.Errorf("day_slots[%d].default_end: invalid format '%s', expected HH:MM:SS", i, t.DefaultEnd)
		}
		if !end.After(start) {
			return fmt.Errorf("day_slots[%d]: default_end must be after default_start", i)
		}

		if t.Hours <= 0 {
			return fmt.Errorf("day_slots[%d].hours must be positive", i)
		}
	}

	return nil
}
