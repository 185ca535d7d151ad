package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hireloop/resume-ranker/internal/domain"
)

// weightProfile mirrors the YAML shape of an operator-supplied weight file.
// Only known category ids are honored; weights outside 1-10 are rejected.
type weightProfile struct {
	UseCustomWeights bool `yaml:"use_custom_weights"`
	Categories       []struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Weight      int    `yaml:"weight"`
	} `yaml:"categories"`
}

// LoadWeightProfile reads an optional YAML weight profile and overlays it on
// the default weight configuration. An empty path returns the defaults.
func LoadWeightProfile(path string) (domain.WeightConfig, error) {
	cfg := domain.DefaultWeightConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("op=config.LoadWeightProfile: %w", err)
	}
	var wp weightProfile
	if err := yaml.Unmarshal(b, &wp); err != nil {
		return cfg, fmt.Errorf("op=config.LoadWeightProfile: parse: %w", err)
	}
	cfg.UseCustomWeights = wp.UseCustomWeights
	for _, in := range wp.Categories {
		id := domain.CategoryID(in.ID)
		if !domain.ValidCategoryID(id) {
			continue
		}
		if in.Weight < 1 || in.Weight > 10 {
			return cfg, fmt.Errorf("op=config.LoadWeightProfile: %w: weight %d for %s out of range", domain.ErrInvalidArgument, in.Weight, in.ID)
		}
		for i := range cfg.Categories {
			if cfg.Categories[i].ID == id {
				cfg.Categories[i].Weight = in.Weight
				if in.Name != "" {
					cfg.Categories[i].Name = in.Name
				}
				if in.Description != "" {
					cfg.Categories[i].Description = in.Description
				}
			}
		}
	}
	return cfg, nil
}
