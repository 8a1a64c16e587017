package ecs

import "github.com/BurntSushi/toml"

// WorldConfig holds the bring-up knobs a host application would otherwise
// wire up by hand: initial entity reservation and worker-pool sizing.
// Grounded on rdtc8822-debug-L1JGO-Whale/internal/config/config.go's
// TOML-tagged Config struct and Load/defaults() pattern.
type WorldConfig struct {
	Entities EntityConfig `toml:"entities"`
	Workers  WorkerConfig `toml:"workers"`
}

// EntityConfig sizes the entity table's initial reservation.
type EntityConfig struct {
	Reserve int `toml:"reserve"`
}

// WorkerConfig sizes the worker-pool dispatcher when one is constructed
// from configuration rather than directly via ecs/dispatch.
type WorkerConfig struct {
	PoolSize int `toml:"pool_size"`
}

// DefaultWorldConfig returns the configuration used when no file is loaded.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Entities: EntityConfig{Reserve: 1024},
		Workers:  WorkerConfig{PoolSize: 4},
	}
}

// LoadConfig reads a TOML document at path over DefaultWorldConfig's
// defaults, following the teacher pack's defaults()-then-unmarshal idiom.
func LoadConfig(path string) (WorldConfig, error) {
	cfg := DefaultWorldConfig()
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return WorldConfig{}, err
	}
	return cfg, nil
}
