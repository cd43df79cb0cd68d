package config

import (
	"fmt"
	"os"
	"path/filepath"

	valid "github.com/asaskevich/govalidator"
	"github.com/caarlos0/env/v11"
	"github.com/colorfulnotion/raid6/erasurecoding"
	"github.com/colorfulnotion/raid6/galois"
	"gopkg.in/yaml.v3"
)

const (
	BackendDir     = "dir"
	BackendLevelDB = "leveldb"
)

// Config describes one array. Disks, Polynomial, Generator and StripeUnit
// must stay the same for every write and read against the same root.
type Config struct {
	Disks        int    `yaml:"disks" valid:"required" env:"RAID6_DISKS"`
	Polynomial   uint16 `yaml:"polynomial" valid:"required"`
	Generator    byte   `yaml:"generator" valid:"required"`
	StripeUnit   int    `yaml:"stripeUnit" valid:"required"`
	Workers      int    `yaml:"workers" valid:"optional" env:"RAID6_WORKERS"`
	ChunkSize    int    `yaml:"chunkSize" valid:"optional"`
	Backend      string `yaml:"backend" valid:"in(dir|leveldb),required" env:"RAID6_BACKEND"`
	Root         string `yaml:"root" valid:"required" env:"RAID6_ROOT"`
	Manifest     string `yaml:"manifest" valid:"optional"`
	VerifyOnRead bool   `yaml:"verifyOnRead" valid:"optional"`
	LogLevel     string `yaml:"logLevel" valid:"in(trace|debug|info|warn|warning|error|crit|critical),optional" env:"RAID6_LOG_LEVEL"`
	LogModules   string `yaml:"logModules" valid:"optional" env:"RAID6_LOG_MODULES"`
	OtelEndpoint string `yaml:"otelEndpoint" valid:"optional" env:"RAID6_OTEL_ENDPOINT"`
}

func Default() Config {
	return Config{
		Disks:        6,
		Polynomial:   galois.DefaultPolynomial,
		Generator:    galois.DefaultGenerator,
		StripeUnit:   1,
		ChunkSize:    erasurecoding.DefaultChunkSize,
		Backend:      BackendDir,
		Root:         "raid6",
		VerifyOnRead: true,
		LogLevel:     "info",
	}
}

// Load starts from Default, applies the YAML file at path when path is not
// empty, then RAID6_* environment variables, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	if _, err := valid.ValidateStruct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := erasurecoding.CheckGeometry(cfg.Disks); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := erasurecoding.NewLayout(cfg.Disks-2, cfg.StripeUnit); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Workers < 0 || cfg.ChunkSize < 0 {
		return fmt.Errorf("invalid config: workers %d, chunkSize %d must not be negative", cfg.Workers, cfg.ChunkSize)
	}
	if _, err := cfg.Field(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Field builds the GF(2^8) engine for the configured polynomial and generator.
func (cfg Config) Field() (*galois.Field, error) {
	if cfg.Polynomial == galois.DefaultPolynomial && cfg.Generator == galois.DefaultGenerator {
		return galois.Default(), nil
	}
	return galois.Build(cfg.Polynomial, cfg.Generator)
}

// ManifestPath is where object manifests are kept, root/manifest by default.
func (cfg Config) ManifestPath() string {
	if cfg.Manifest != "" {
		return cfg.Manifest
	}
	return filepath.Join(cfg.Root, "manifest")
}

func (cfg Config) ToBytes() ([]byte, error) {
	res, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to turn config into bytes: %v", err)
	}
	return res, nil
}
