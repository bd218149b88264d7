// Package config loads crossquery configuration: the knowledge graph
// document path, the customer database fleet, and category alias tables.
// Precedence is flags over environment over config file over defaults.
package config

import (
	"fmt"

	"github.com/meridian-data/crossquery/pkg/core"
	"github.com/meridian-data/crossquery/pkg/harmonize"
)

// CustomerConfig holds one customer's database connection settings.
type CustomerConfig struct {
	Type string `koanf:"type"` // sqlite, duckdb, postgres

	// File-based databases (SQLite, DuckDB)
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Schema   string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`
}

// ToAdapterConfig converts to the adapter-facing connection settings.
func (c CustomerConfig) ToAdapterConfig() core.AdapterConfig {
	return core.AdapterConfig{
		Type:     c.Type,
		Path:     c.Path,
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		Username: c.Username,
		Password: c.Password,
		Schema:   c.Schema,
		Options:  c.Options,
	}
}

// Config is the full crossquery configuration.
type Config struct {
	// GraphPath is the knowledge graph JSON document.
	GraphPath string `koanf:"graph_path"`

	// Customers maps customer id to connection settings.
	Customers map[string]CustomerConfig `koanf:"customers"`

	// Aliases declares category alias tables: concept id to canonical name
	// to its raw spellings.
	Aliases map[string]map[string][]string `koanf:"aliases"`

	// IndustryConcept, when set, seeds the builtin industry taxonomy under
	// that concept id in addition to any declared aliases.
	IndustryConcept string `koanf:"industry_concept"`

	// Concurrency bounds parallel customer executions.
	Concurrency int `koanf:"concurrency"`

	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`

	// Output selects CLI rendering: "table" or "json".
	Output string `koanf:"output"`
}

// Validate checks the loaded configuration for the problems that would
// otherwise surface as confusing runtime failures.
func (c *Config) Validate() error {
	if c.GraphPath == "" {
		return fmt.Errorf("graph_path is required")
	}
	for id, cc := range c.Customers {
		if cc.Type == "" {
			return fmt.Errorf("customer %q: type is required", id)
		}
	}
	if c.Output != "table" && c.Output != "json" {
		return fmt.Errorf("output must be \"table\" or \"json\", got %q", c.Output)
	}
	return nil
}

// AdapterConfigs converts the customer map to adapter-facing settings.
func (c *Config) AdapterConfigs() map[string]core.AdapterConfig {
	out := make(map[string]core.AdapterConfig, len(c.Customers))
	for id, cc := range c.Customers {
		out[id] = cc.ToAdapterConfig()
	}
	return out
}

// AliasTable builds the harmonizer alias table from the declared aliases
// plus the optional builtin industry seed.
func (c *Config) AliasTable() *harmonize.AliasTable {
	t := harmonize.NewAliasTable()
	if c.IndustryConcept != "" {
		t.SeedIndustry(c.IndustryConcept)
	}
	for conceptID, canon := range c.Aliases {
		for canonical, aliases := range canon {
			t.Add(conceptID, canonical, aliases...)
		}
	}
	return t
}
