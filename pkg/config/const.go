package config

const (
	// CliConfigFileName is the config file name without extension.
	CliConfigFileName = "weave"
	// ConfigPathEnvVar points at a config file or a directory containing weave.yaml.
	ConfigPathEnvVar = "WEAVE_CONFIG_PATH"
	// EnvPrefix prefixes every environment override, e.g. WEAVE_SETTINGS_RETRIEVAL_ENABLED.
	EnvPrefix = "WEAVE"

	DefaultLogsFile  = "/dev/stderr"
	DefaultLogsLevel = "Info"

	DefaultToolName        = "search"
	DefaultToolDescription = "Search the knowledge base for facts relevant to the conversation."
	DefaultMaxResults      = 5
	DefaultMaxTokens       = 1024
	DefaultTimeoutSeconds  = 60
	DefaultInjectionDepth  = -1
	DefaultCacheTTLSeconds = 600
	DefaultCachePrefix     = "weave:retrieval:"
	DefaultLoreContextSize = 2048
	DefaultLoreScanDepth   = 4
	DefaultLoreEncoding    = "cl100k_base"
	TranscriptFileName     = "transcript.db"

	DefaultRetryInitialDelay = "500ms"
	DefaultRetryMaxDelay     = "5s"
	DefaultRetryMaxElapsed   = "2m"
)

// DefaultSystemTemplate is the instruction sent to the retrieval model.
const DefaultSystemTemplate = `You are a research assistant for a roleplay between {{user}} and {{char}}.
Use the search tool to look up facts relevant to the latest turn of the conversation.
Answer with a short, factual summary of what you found. If nothing relevant is found, answer with nothing.`

// DefaultUserTemplate is the query sent to the retrieval model.
const DefaultUserTemplate = `{{loreBefore}}

Recent conversation:
{{recentHistory}}

{{loreAfter}}

Find information relevant to this message: {{lastMessage}}`

// DefaultInjectionTemplate wraps the retrieval answer before it is injected.
const DefaultInjectionTemplate = `[Relevant information retrieved for this reply]
{{retrievedContext}}`
