// Package config provides configuration loading for evolution runs.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/morphogen/engine"
	"github.com/pthm-cable/morphogen/evolution"
	"github.com/pthm-cable/morphogen/sim"
	"github.com/pthm-cable/morphogen/traits"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all run configuration.
type Config struct {
	Evolution  EvolutionConfig  `yaml:"evolution"`
	Simulation SimulationConfig `yaml:"simulation"`
	Engine     engine.Config    `yaml:"engine"`
	Output     OutputConfig     `yaml:"output"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`

	// Path to a YAML trait specification. Empty selects the built-in one.
	TraitsFile string `yaml:"traits_file"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// EvolutionConfig sizes the population and sets the breeding parameters.
type EvolutionConfig struct {
	PopulationSize   int              `yaml:"population_size"`
	GeneCount        int              `yaml:"gene_count"`
	RandomLength     bool             `yaml:"random_length"` // Initial lengths drawn from [2, gene_count)
	Elites           int              `yaml:"elites"`
	RandomInjections int              `yaml:"random_injections"`
	Generations      int              `yaml:"generations"`
	Seed             uint64           `yaml:"seed"`
	Operators        evolution.Params `yaml:"operators"`
}

// SimulationConfig controls fitness episodes.
type SimulationConfig struct {
	Workers     int         `yaml:"workers"` // 0 uses GOMAXPROCS
	Engine      string      `yaml:"engine"`
	sim.Episode `yaml:",inline"`
}

// OutputConfig controls what is written to disk.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	Identifier   string `yaml:"identifier"`
	SaveInterval int    `yaml:"save_interval"` // Generations between chromosome snapshots
	Fittest      int    `yaml:"fittest"`       // Champions kept and exported
	Reports      bool   `yaml:"reports"`
	WriteURDF    bool   `yaml:"write_urdf"`
}

// StorageConfig selects the run ledger backend.
type StorageConfig struct {
	Kind string `yaml:"kind"` // none, memory or sqlite
	Path string `yaml:"path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // Empty disables the endpoint
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Workers int          // Simulation.Workers with 0 resolved
	Spec    *traits.Spec // Trait spec from TraitsFile or the default
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only fields present in the file are overwritten
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	e := c.Evolution
	if e.PopulationSize <= 0 {
		errs = append(errs, fmt.Errorf("evolution.population_size must be positive, got %d", e.PopulationSize))
	}
	if e.GeneCount <= 0 {
		errs = append(errs, fmt.Errorf("evolution.gene_count must be positive, got %d", e.GeneCount))
	}
	if e.RandomLength && e.GeneCount < 3 {
		errs = append(errs, fmt.Errorf("evolution.random_length needs gene_count >= 3, got %d", e.GeneCount))
	}
	if e.Elites < 0 || e.RandomInjections < 0 {
		errs = append(errs, errors.New("evolution.elites and evolution.random_injections must be non-negative"))
	}
	if e.Generations < 0 {
		errs = append(errs, fmt.Errorf("evolution.generations must be non-negative, got %d", e.Generations))
	}
	if err := e.Operators.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("evolution.operators: %w", err))
	}

	if c.Simulation.Workers < 0 {
		errs = append(errs, fmt.Errorf("simulation.workers must be non-negative, got %d", c.Simulation.Workers))
	}
	if c.Simulation.Engine != "kinematic" {
		errs = append(errs, fmt.Errorf("simulation.engine %q not supported", c.Simulation.Engine))
	}
	if err := c.Simulation.Episode.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("simulation: %w", err))
	}
	if c.Engine.DT <= 0 {
		errs = append(errs, fmt.Errorf("engine.dt must be positive, got %v", c.Engine.DT))
	}

	if c.Output.Identifier == "" {
		errs = append(errs, errors.New("output.identifier must not be empty"))
	}
	if c.Output.SaveInterval <= 0 {
		errs = append(errs, fmt.Errorf("output.save_interval must be positive, got %d", c.Output.SaveInterval))
	}
	switch c.Storage.Kind {
	case "none", "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("storage.kind %q not supported", c.Storage.Kind))
	}
	return errors.Join(errs...)
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	c.Derived.Workers = c.Simulation.Workers
	if c.Derived.Workers == 0 {
		c.Derived.Workers = runtime.GOMAXPROCS(0)
	}

	if c.TraitsFile == "" {
		c.Derived.Spec = traits.Default()
		return nil
	}
	spec, err := traits.LoadSpec(c.TraitsFile)
	if err != nil {
		return err
	}
	c.Derived.Spec = spec
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
