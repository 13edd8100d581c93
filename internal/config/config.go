package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Events   EventsConfig   `mapstructure:"events"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// StorageConfig selects and configures the task record store backing.
type StorageConfig struct {
	// Driver is "file" for the JSON ledger or "postgres" for pgx.
	Driver string `mapstructure:"driver" validate:"required,oneof=file postgres"`

	// FilePath is the ledger location for the file driver.
	FilePath string `mapstructure:"file_path" validate:"required_if=Driver file"`

	// DatabaseURL is the connection string for the postgres driver.
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Driver postgres"`
}

// PipelineConfig controls the orchestration manager and its stage adapters.
type PipelineConfig struct {
	// Workers is the number of concurrent worker slots (bounded, small).
	Workers int `mapstructure:"workers" validate:"required,gte=1,lte=4"`

	// QueueSize is the buffer of the submission queue; submissions beyond
	// it are rejected rather than blocking the HTTP handler.
	QueueSize int `mapstructure:"queue_size" validate:"required,gte=1"`

	// UploadDir receives client uploads; WorkDir holds per-task scratch
	// files; OutputDir holds transcripts served by /download.
	UploadDir string `mapstructure:"upload_dir" validate:"required"`
	WorkDir   string `mapstructure:"work_dir"   validate:"required"`
	OutputDir string `mapstructure:"output_dir" validate:"required"`

	// MaxUploadBytes caps multipart uploads.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"required,gt=0"`

	// AllowedExtensions whitelists upload file extensions, without dots.
	AllowedExtensions []string `mapstructure:"allowed_extensions" validate:"required,min=1"`

	// DownloadRetries bounds acquisition retries; model-inference stages
	// are never retried.
	DownloadRetries   int `mapstructure:"download_retries"    validate:"gte=0,lte=5"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=1"`

	// Language is the transcription language hint.
	Language string `mapstructure:"language" validate:"required"`

	// WhisperModel is the path to the transcription model file.
	WhisperModel string `mapstructure:"whisper_model" validate:"required"`

	// Diarization toggles the optional speaker identification stage.
	Diarization bool `mapstructure:"diarization"`

	// RetentionHours is how long working files are kept before the janitor
	// removes them. Task records are never deleted.
	RetentionHours int `mapstructure:"retention_hours" validate:"gte=1"`
}

// LLMConfig contains all LLM integration related settings. An empty API key
// disables summarization; tasks then complete without an AI summary.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name"`
}

// EventsConfig configures optional task event publication. An empty NATS URL
// keeps events in-process only.
type EventsConfig struct {
	NATSURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}
