package config

import (
	"os"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Server Server `yaml:"server"`
	Batch  Batch  `yaml:"batch"`
}

type Server struct {
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type Batch struct {
	// ChunkSize bounds how many duplicate groups are fetched and merged
	// per iteration so a single transaction never spans the whole table.
	ChunkSize int `yaml:"chunkSize"`

	// LockTTLSeconds is the lifetime of the per-goal derivation lock.
	LockTTLSeconds int `yaml:"lockTTLSeconds"`

	// ShortTextFloor and DemotionRatio tune the resolver's guard
	// against a trivial recent edit outranking a substantive one.
	ShortTextFloor int `yaml:"shortTextFloor"`
	DemotionRatio  int `yaml:"demotionRatio"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	config.applyDefaults()

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Batch.ChunkSize <= 0 {
		c.Batch.ChunkSize = 500
	}
	if c.Batch.LockTTLSeconds <= 0 {
		c.Batch.LockTTLSeconds = 60
	}
	if c.Batch.ShortTextFloor <= 0 {
		c.Batch.ShortTextFloor = 10
	}
	if c.Batch.DemotionRatio <= 0 {
		c.Batch.DemotionRatio = 8
	}
}
