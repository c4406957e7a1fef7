package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for optional configuration
const (
	DefaultLogLevel = "info"

	DefaultTelegramDownloadTimeout       = 30 * time.Second
	DefaultTelegramSendTimeout           = 10 * time.Second
	DefaultTelegramHandlerTimeout        = 10 * time.Minute
	DefaultTelegramMaxConcurrentHandlers = 16
	DefaultTelegramMaxDownloadBytes      = 20 * 1024 * 1024 // Bot API getFile limit

	DefaultGeminiModelName  = "gemini-2.0-flash"
	DefaultGeminiTimeout    = 2 * time.Minute
	DefaultGeminiRetries    = 2
	DefaultGeminiRetryDelay = 2 * time.Second
	GeminiMaxRetryDelay     = 30 * time.Second

	DefaultSearchEndpoint   = "https://google.serper.dev/search"
	DefaultSearchLocale     = "us"
	DefaultSearchLanguage   = "en"
	DefaultSearchTimeout    = 15 * time.Second
	DefaultSearchRetries    = 2
	DefaultSearchRetryDelay = 500 * time.Millisecond
	SearchMaxRetryDelay     = 5 * time.Second
	DefaultSearchMaxLinks   = 3

	DefaultOCRScratchDir    = "downloads"
	DefaultOCRScratchMaxAge = time.Hour

	DefaultDBPath             = "scribebot.db"
	DefaultDBOperationTimeout = 5 * time.Second

	DefaultDedupScope = "message"

	DefaultDashboardAddr    = ":8000"
	DefaultDashboardGinMode = "release"
)

// DefaultMessages are the user-facing strings used unless overridden.
var DefaultMessages = MessagesConfig{
	Welcome:            "Welcome! Please share your contact:",
	ShareContactButton: "📱 Share Contact",
	Help: "Send me a text message and I'll reply with a sentiment check.\n" +
		"Send a photo or a document (image or PDF) and I'll read it and describe it.\n" +
		"Use /websearch <query> to search the web and get a summary.",
	ContactThanks:      "Thank you for sharing your phone number!",
	ContactUnreadable:  "Sorry, I couldn't read a phone number from that contact.",
	Unsupported:        "Sorry, I can't process this type of message yet.",
	FileRetrieveFailed: "Failed to retrieve the file.",
	Generating:         "Generating response.... please wait.",
	Analyzing:          "Response generated, analyzing .... please wait.",
	FileReceived:       "File received! Description: %s",
	Searching:          "Searching...",
	SearchComplete:     "Search complete, analyzing...",
	SearchSummary:      "🌐 Search Summary:\n%s",
	SearchUsage:        "Usage: /websearch <query>",
	GenerationError:    "Sorry, I couldn't generate a response right now. Please try again later.",
	NoTextImage:        "No text extracted from image.",
	NoTextDocument:     "No text extracted from document.",
	NoDescription:      "No description available.",
	NoSummary:          "No summary available.",
}

// DefaultTasks are the scheduled maintenance tasks registered by default.
var DefaultTasks = map[string]TaskConfig{
	"sql_maintenance": {Enabled: true, Schedule: "0 0 4 * * *"},
	"scratch_cleanup": {Enabled: true, Schedule: "0 */15 * * * *"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.download_timeout", DefaultTelegramDownloadTimeout)
	v.SetDefault("telegram.send_timeout", DefaultTelegramSendTimeout)
	v.SetDefault("telegram.handler_timeout", DefaultTelegramHandlerTimeout)
	v.SetDefault("telegram.max_concurrent_handlers", DefaultTelegramMaxConcurrentHandlers)
	v.SetDefault("telegram.max_download_bytes", DefaultTelegramMaxDownloadBytes)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", DefaultGeminiModelName)
	v.SetDefault("gemini.description_model_name", "")
	v.SetDefault("gemini.temperature", 1.0)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)
	v.SetDefault("gemini.max_retries", DefaultGeminiRetries)
	v.SetDefault("gemini.retry_delay", DefaultGeminiRetryDelay)

	v.SetDefault("search.api_key", "")
	v.SetDefault("search.endpoint", DefaultSearchEndpoint)
	v.SetDefault("search.locale", DefaultSearchLocale)
	v.SetDefault("search.language", DefaultSearchLanguage)
	v.SetDefault("search.timeout", DefaultSearchTimeout)
	v.SetDefault("search.max_retries", DefaultSearchRetries)
	v.SetDefault("search.retry_delay", DefaultSearchRetryDelay)
	v.SetDefault("search.max_links", DefaultSearchMaxLinks)

	v.SetDefault("ocr.scratch_dir", DefaultOCRScratchDir)
	v.SetDefault("ocr.languages", []string{"eng"})
	v.SetDefault("ocr.tessdata_prefix", "")
	v.SetDefault("ocr.max_concurrency", 0)
	v.SetDefault("ocr.scratch_max_age", DefaultOCRScratchMaxAge)

	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.operation_timeout", DefaultDBOperationTimeout)

	v.SetDefault("persistence.dedup_scope", DefaultDedupScope)

	v.SetDefault("dashboard.enabled", true)
	v.SetDefault("dashboard.addr", DefaultDashboardAddr)
	v.SetDefault("dashboard.gin_mode", DefaultDashboardGinMode)

	tasks := make(map[string]any, len(DefaultTasks))
	for name, task := range DefaultTasks {
		tasks[name] = map[string]any{"enabled": task.Enabled, "schedule": task.Schedule}
	}
	v.SetDefault("scheduler.tasks", tasks)

	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.share_contact_button", DefaultMessages.ShareContactButton)
	v.SetDefault("messages.help", DefaultMessages.Help)
	v.SetDefault("messages.contact_thanks", DefaultMessages.ContactThanks)
	v.SetDefault("messages.contact_unreadable", DefaultMessages.ContactUnreadable)
	v.SetDefault("messages.unsupported", DefaultMessages.Unsupported)
	v.SetDefault("messages.file_retrieve_failed", DefaultMessages.FileRetrieveFailed)
	v.SetDefault("messages.generating", DefaultMessages.Generating)
	v.SetDefault("messages.analyzing", DefaultMessages.Analyzing)
	v.SetDefault("messages.file_received", DefaultMessages.FileReceived)
	v.SetDefault("messages.searching", DefaultMessages.Searching)
	v.SetDefault("messages.search_complete", DefaultMessages.SearchComplete)
	v.SetDefault("messages.search_summary", DefaultMessages.SearchSummary)
	v.SetDefault("messages.search_usage", DefaultMessages.SearchUsage)
	v.SetDefault("messages.generation_error", DefaultMessages.GenerationError)
	v.SetDefault("messages.no_text_image", DefaultMessages.NoTextImage)
	v.SetDefault("messages.no_text_document", DefaultMessages.NoTextDocument)
	v.SetDefault("messages.no_description", DefaultMessages.NoDescription)
	v.SetDefault("messages.no_summary", DefaultMessages.NoSummary)
}
