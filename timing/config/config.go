// Package config holds the run configuration of the pipeline model: the
// cycle cap, the initial architectural state and the data-cache geometry.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/sarchlab/rvpipe/timing/cache"
)

// DefaultCycleCapFactor bounds a run at this many cycles per program word.
const DefaultCycleCapFactor = 15

// Config is the JSON-serialisable run configuration.
type Config struct {
	// CycleCapFactor limits a run to CycleCapFactor * len(program) cycles.
	// Default: 15.
	CycleCapFactor int `json:"cycle_cap_factor"`

	// InitialRegisters seeds the register file before the first cycle.
	// Writes to x0 are rejected by Validate.
	InitialRegisters map[uint8]uint32 `json:"initial_registers,omitempty"`

	// InitialMemory seeds data memory with words keyed by byte address.
	InitialMemory map[uint32]uint32 `json:"initial_memory,omitempty"`

	// DataCache is the statistics-only data cache. A zero size disables it.
	DataCache cache.Config `json:"data_cache"`
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() *Config {
	return &Config{
		CycleCapFactor: DefaultCycleCapFactor,
		DataCache:      cache.DefaultDataCacheConfig(),
	}
}

// LoadConfig loads a Config from a JSON file. Fields absent from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}

	return config, nil
}

// SaveConfig writes the Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// Validate checks the configuration for values the model cannot run with.
func (c *Config) Validate() error {
	if c.CycleCapFactor <= 0 {
		return errors.New("cycle_cap_factor must be > 0")
	}
	for reg := range c.InitialRegisters {
		if reg == 0 {
			return errors.New("initial_registers: x0 is hardwired to zero")
		}
		if reg > 31 {
			return errors.Errorf("initial_registers: no register x%d", reg)
		}
	}
	for addr := range c.InitialMemory {
		if addr%4 != 0 {
			return errors.Errorf("initial_memory: address %#x is not word aligned", addr)
		}
	}
	if c.DataCache.Enabled() {
		if err := c.DataCache.Validate(); err != nil {
			return errors.Wrap(err, "data_cache")
		}
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := &Config{
		CycleCapFactor: c.CycleCapFactor,
		DataCache:      c.DataCache,
	}

	if c.InitialRegisters != nil {
		clone.InitialRegisters = make(map[uint8]uint32, len(c.InitialRegisters))
		for reg, value := range c.InitialRegisters {
			clone.InitialRegisters[reg] = value
		}
	}

	if c.InitialMemory != nil {
		clone.InitialMemory = make(map[uint32]uint32, len(c.InitialMemory))
		for addr, word := range c.InitialMemory {
			clone.InitialMemory[addr] = word
		}
	}

	return clone
}
