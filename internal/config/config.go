package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server  ServerConfig
	Gemini  GeminiConfig
	Storage StorageConfig
	Ingest  IngestConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	UploadWait string
}

type StorageConfig struct {
	DataDir   string
	UploadDir string
}

type IngestConfig struct {
	BatchSize int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 4700,
		},
		Gemini: GeminiConfig{
			Model:      "gemini-2.5-flash",
			UploadWait: "30s",
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Ingest: IngestConfig{
			BatchSize: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file and environment
// variables. The file lives at $XDG_CONFIG_HOME/docvault/config.json;
// environment variables (DOCVAULT_*) override file values.
//
// The Gemini API key is a secret and is only read from the environment,
// never from the config file. Load does not require the key to be set:
// commands that talk to the Gemini API validate it themselves.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = defaultUploadDir(cfg.Storage.DataDir)
	}

	if cfg.Ingest.BatchSize <= 0 {
		return Config{}, fmt.Errorf("ingest.batch_size must be positive, got %d", cfg.Ingest.BatchSize)
	}
	if _, err := time.ParseDuration(cfg.Gemini.UploadWait); err != nil {
		return Config{}, fmt.Errorf("invalid gemini.upload_wait %q: %w", cfg.Gemini.UploadWait, err)
	}

	return cfg, nil
}

// UploadWaitDuration returns the parsed gemini.upload_wait value.
// Load has already validated it; a zero duration is returned on error.
func (c Config) UploadWaitDuration() time.Duration {
	d, err := time.ParseDuration(c.Gemini.UploadWait)
	if err != nil {
		return 0
	}
	return d
}
