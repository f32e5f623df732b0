package config

import (
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"wordfreq/pkg/common"
)

const (
	DefaultChunkBytes = 512 * 1024
	DefaultK          = 10
)

type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

type PipelineConfig struct {
	ChunkBytes  int64  `yaml:"chunk_bytes"`  // 单个 chunk 的字节阈值
	K           int    `yaml:"k"`            // Top-K 的 K
	SortWorkers int    `yaml:"sort_workers"` // 并行排序 worker 数，默认 CPU 数
	Order       string `yaml:"order"`        // lexical | numeric
	VerifyOrder *bool  `yaml:"verify_order"`
}

type StorageConfig struct {
	ChunkDir   string `yaml:"chunk_dir"`
	ResultDB   string `yaml:"result_db"` // 为空表示不落库
	KeepChunks bool   `yaml:"keep_chunks"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	verify := true
	return &Config{
		Pipeline: PipelineConfig{
			ChunkBytes:  DefaultChunkBytes,
			K:           DefaultK,
			SortWorkers: runtime.NumCPU(),
			Order:       "lexical",
			VerifyOrder: &verify,
		},
		Storage: StorageConfig{
			ChunkDir: "chunks",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath == "" {
		for _, p := range []string{"configs/wordfreq.yaml", "wordfreq.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills fields a config file left empty. Explicit non-positive
// chunk_bytes and k are kept so Validate can reject them.
func applyDefaults(cfg *Config) {
	if cfg.Pipeline.SortWorkers <= 0 {
		cfg.Pipeline.SortWorkers = runtime.NumCPU()
	}
	if cfg.Pipeline.Order == "" {
		cfg.Pipeline.Order = "lexical"
	}
	if cfg.Pipeline.VerifyOrder == nil {
		verify := true
		cfg.Pipeline.VerifyOrder = &verify
	}
	if cfg.Storage.ChunkDir == "" {
		cfg.Storage.ChunkDir = "chunks"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate rejects tunables the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Pipeline.ChunkBytes <= 0 {
		return &common.InvalidConfigError{Field: "chunk_bytes", Reason: "must be positive"}
	}
	if c.Pipeline.K <= 0 {
		return &common.InvalidConfigError{Field: "k", Reason: "must be positive"}
	}
	if _, err := common.CompareByName(c.Pipeline.Order); err != nil {
		return err
	}
	return nil
}

// Compare returns the record ordering selected by pipeline.order.
func (c *Config) Compare() common.Compare {
	cmp, err := common.CompareByName(c.Pipeline.Order)
	if err != nil {
		return common.Lexical
	}
	return cmp
}

func (c *Config) Verify() bool {
	return c.Pipeline.VerifyOrder == nil || *c.Pipeline.VerifyOrder
}
