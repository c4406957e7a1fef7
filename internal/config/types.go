// Package config loads, defaults and validates the scribebot configuration.
// Values come from (lowest to highest precedence) built-in defaults, an
// optional YAML file, a .env file and the process environment.
package config

import "time"

// Config is the root configuration for all bot components.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Search      SearchConfig      `mapstructure:"search"`
	OCR         OCRConfig         `mapstructure:"ocr"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Dashboard   DashboardConfig   `mapstructure:"dashboard"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Messages    MessagesConfig    `mapstructure:"messages"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds bot credentials and per-call limits for the Telegram API.
type TelegramConfig struct {
	Token                 string        `mapstructure:"token"                   validate:"required"`
	DownloadTimeout       time.Duration `mapstructure:"download_timeout"        validate:"min=1s"`
	SendTimeout           time.Duration `mapstructure:"send_timeout"            validate:"min=1s"`
	HandlerTimeout        time.Duration `mapstructure:"handler_timeout"         validate:"min=1s"`
	MaxConcurrentHandlers int           `mapstructure:"max_concurrent_handlers" validate:"min=1,max=1000"`
	MaxDownloadBytes      int64         `mapstructure:"max_download_bytes"      validate:"min=1024"`
}

// GeminiConfig configures the generative text client.
type GeminiConfig struct {
	APIKey               string        `mapstructure:"api_key"                validate:"required"`
	ModelName            string        `mapstructure:"model_name"             validate:"required"`
	DescriptionModelName string        `mapstructure:"description_model_name"`
	Temperature          float32       `mapstructure:"temperature"            validate:"min=0,max=2"`
	Timeout              time.Duration `mapstructure:"timeout"                validate:"min=1s,max=10m"`
	MaxRetries           int           `mapstructure:"max_retries"            validate:"min=0,max=10"`
	RetryDelay           time.Duration `mapstructure:"retry_delay"`
}

// SearchConfig configures the Serper web search client.
type SearchConfig struct {
	APIKey     string        `mapstructure:"api_key"     validate:"required"`
	Endpoint   string        `mapstructure:"endpoint"    validate:"required,url"`
	Locale     string        `mapstructure:"locale"      validate:"required"`
	Language   string        `mapstructure:"language"    validate:"required"`
	Timeout    time.Duration `mapstructure:"timeout"     validate:"min=1s,max=5m"`
	MaxRetries int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	MaxLinks   int           `mapstructure:"max_links"   validate:"min=1,max=10"`
}

// OCRConfig configures text extraction and scratch storage.
type OCRConfig struct {
	ScratchDir     string        `mapstructure:"scratch_dir"     validate:"required"`
	Languages      []string      `mapstructure:"languages"       validate:"min=1"`
	TessdataPrefix string        `mapstructure:"tessdata_prefix"`
	MaxConcurrency int           `mapstructure:"max_concurrency" validate:"min=0"`
	ScratchMaxAge  time.Duration `mapstructure:"scratch_max_age" validate:"min=1m"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	Path             string        `mapstructure:"path"              validate:"required"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" validate:"min=100ms"`
}

// PersistenceConfig controls how interaction records are deduplicated.
// DedupScope "message" stores one record per incoming message; "user" keeps the
// legacy behavior of one record per user and chat.
type PersistenceConfig struct {
	DedupScope string `mapstructure:"dedup_scope" validate:"oneof=message user"`
}

// DashboardConfig configures the read-only reporting HTTP server.
type DashboardConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"     validate:"required_if=Enabled true"`
	GinMode string `mapstructure:"gin_mode" validate:"oneof=debug release test"`
}

// SchedulerConfig lists the scheduled maintenance tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task and sets its cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds every user-facing string the bot sends.
type MessagesConfig struct {
	Welcome            string `mapstructure:"welcome"              validate:"required"`
	ShareContactButton string `mapstructure:"share_contact_button" validate:"required"`
	Help               string `mapstructure:"help"                 validate:"required"`
	ContactThanks      string `mapstructure:"contact_thanks"       validate:"required"`
	ContactUnreadable  string `mapstructure:"contact_unreadable"   validate:"required"`
	Unsupported        string `mapstructure:"unsupported"          validate:"required"`
	FileRetrieveFailed string `mapstructure:"file_retrieve_failed" validate:"required"`
	Generating         string `mapstructure:"generating"           validate:"required"`
	Analyzing          string `mapstructure:"analyzing"            validate:"required"`
	FileReceived       string `mapstructure:"file_received"        validate:"required"`
	Searching          string `mapstructure:"searching"            validate:"required"`
	SearchComplete     string `mapstructure:"search_complete"      validate:"required"`
	SearchSummary      string `mapstructure:"search_summary"       validate:"required"`
	SearchUsage        string `mapstructure:"search_usage"         validate:"required"`
	GenerationError    string `mapstructure:"generation_error"     validate:"required"`
	NoTextImage        string `mapstructure:"no_text_image"        validate:"required"`
	NoTextDocument     string `mapstructure:"no_text_document"     validate:"required"`
	NoDescription      string `mapstructure:"no_description"       validate:"required"`
	NoSummary          string `mapstructure:"no_summary"           validate:"required"`
}
