package llm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelInfo describes one selectable generation model.
type ModelInfo struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Default     bool   `yaml:"default,omitempty" json:"default,omitempty"`
}

// Catalog is the set of models offered to clients.
type Catalog struct {
	Models []ModelInfo `yaml:"models" json:"models"`
}

// DefaultCatalog returns the built-in model list used when no catalog file is
// configured.
func DefaultCatalog() Catalog {
	return Catalog{Models: []ModelInfo{
		{ID: "google/gemini-2.5-flash", Name: "Gemini 2.5 Flash", Description: "Fast, balanced default", Default: true},
		{ID: "google/gemini-2.5-pro", Name: "Gemini 2.5 Pro", Description: "Strongest reasoning, slower"},
		{ID: "openai/gpt-5-mini", Name: "GPT-5 Mini", Description: "Cheap and quick"},
	}}
}

// LoadCatalog reads a model catalog from a YAML file. ${VAR} references are
// expanded from the environment before parsing, so deployments can swap model
// IDs without editing the file. Missing vars expand to empty strings.
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read model catalog: %w", err)
	}
	expanded := os.Expand(string(raw), os.Getenv)
	var c Catalog
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return Catalog{}, fmt.Errorf("parse model catalog: %w", err)
	}
	if len(c.Models) == 0 {
		return Catalog{}, fmt.Errorf("model catalog %s lists no models", path)
	}
	return c, nil
}

// DefaultModelID returns the catalog's default model, falling back to the
// first entry.
func (c Catalog) DefaultModelID() string {
	for _, m := range c.Models {
		if m.Default {
			return m.ID
		}
	}
	if len(c.Models) > 0 {
		return c.Models[0].ID
	}
	return DefaultModel
}

// Contains reports whether id names a cataloged model.
func (c Catalog) Contains(id string) bool {
	for _, m := range c.Models {
		if m.ID == id {
			return true
		}
	}
	return false
}
