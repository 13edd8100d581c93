package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml. Environment variables (SCRIBE_ prefix, dots replaced by
// underscores, e.g. SCRIBE_SERVER_PORT) take precedence over file values,
// which take precedence over defaults. Returns a validated Config or an
// error describing what failed.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults carry it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SCRIBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.file_path", "data/tasks_state.json")
	// Registered empty so AutomaticEnv can populate them; viper only reads
	// env vars for keys it already knows about.
	v.SetDefault("storage.database_url", "")

	v.SetDefault("pipeline.workers", 2)
	v.SetDefault("pipeline.queue_size", 100)
	v.SetDefault("pipeline.upload_dir", "data/uploads")
	v.SetDefault("pipeline.work_dir", "data/work")
	v.SetDefault("pipeline.output_dir", "data/output")
	v.SetDefault("pipeline.max_upload_bytes", 2<<30) // 2 GiB
	v.SetDefault("pipeline.allowed_extensions",
		[]string{"mp4", "avi", "mov", "mkv", "webm", "flv", "mpeg", "mp3", "wav", "m4a"})
	v.SetDefault("pipeline.download_retries", 2)
	v.SetDefault("pipeline.retry_delay_seconds", 2)
	v.SetDefault("pipeline.language", "he")
	v.SetDefault("pipeline.whisper_model", "models/ggml-small.bin")
	v.SetDefault("pipeline.diarization", false)
	v.SetDefault("pipeline.retention_hours", 24)

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-1.5-flash")

	v.SetDefault("events.nats_url", "")
	v.SetDefault("events.subject", "scribe.tasks")
}
