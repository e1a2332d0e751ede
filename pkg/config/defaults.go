package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/cloudposse/weave/pkg/ai/injection"
	"github.com/cloudposse/weave/pkg/ai/types"
	"github.com/cloudposse/weave/pkg/schema"
)

func setDefaultConfiguration(v *viper.Viper) {
	v.SetDefault("logs.file", DefaultLogsFile)
	v.SetDefault("logs.level", DefaultLogsLevel)

	v.SetDefault("settings.user_name", "User")
	v.SetDefault("settings.character.name", "")
	v.SetDefault("settings.character.description", "")
	v.SetDefault("settings.character.personality", "")
	v.SetDefault("settings.character.scenario", "")

	v.SetDefault("settings.retrieval.enabled", false)
	v.SetDefault("settings.retrieval.target", "")
	v.SetDefault("settings.retrieval.filter", "")
	v.SetDefault("settings.retrieval.data_source_id", "")
	v.SetDefault("settings.retrieval.custom_parameters", "")
	v.SetDefault("settings.retrieval.tool.name", DefaultToolName)
	v.SetDefault("settings.retrieval.tool.description", DefaultToolDescription)
	v.SetDefault("settings.retrieval.tool.choice", string(types.ToolChoiceAuto))
	v.SetDefault("settings.retrieval.max_results", DefaultMaxResults)
	v.SetDefault("settings.retrieval.max_tokens", DefaultMaxTokens)
	v.SetDefault("settings.retrieval.timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("settings.retrieval.templates.system", DefaultSystemTemplate)
	v.SetDefault("settings.retrieval.templates.user", DefaultUserTemplate)
	v.SetDefault("settings.retrieval.templates.injection", DefaultInjectionTemplate)
	v.SetDefault("settings.retrieval.injection.role", string(types.RoleSystem))
	v.SetDefault("settings.retrieval.injection.position", string(injection.PositionDepth))
	v.SetDefault("settings.retrieval.injection.depth", DefaultInjectionDepth)
	v.SetDefault("settings.retrieval.injection.merge", false)
	v.SetDefault("settings.retrieval.reconcile_auxiliary", false)
	v.SetDefault("settings.retrieval.extra_system_prompt", "")
	v.SetDefault("settings.retrieval.main_tool.enabled", false)
	v.SetDefault("settings.retrieval.main_tool.choice", string(types.ToolChoiceAuto))
	v.SetDefault("settings.retrieval.cache.enabled", false)
	v.SetDefault("settings.retrieval.cache.backend", string(schema.CacheBackendMemory))
	v.SetDefault("settings.retrieval.cache.url", "")
	v.SetDefault("settings.retrieval.cache.ttl_seconds", DefaultCacheTTLSeconds)
	v.SetDefault("settings.retrieval.cache.prefix", DefaultCachePrefix)

	v.SetDefault("settings.retrieval.lock_file", "")

	v.SetDefault("settings.retrieval.retry.max_attempts", 1)
	v.SetDefault("settings.retrieval.retry.backoff_strategy", string(schema.BackoffExponential))
	v.SetDefault("settings.retrieval.retry.initial_delay", DefaultRetryInitialDelay)
	v.SetDefault("settings.retrieval.retry.max_delay", DefaultRetryMaxDelay)
	v.SetDefault("settings.retrieval.retry.multiplier", 2.0)
	v.SetDefault("settings.retrieval.retry.random_jitter", true)
	v.SetDefault("settings.retrieval.retry.max_elapsed_time", DefaultRetryMaxElapsed)

	v.SetDefault("settings.lore.path", "")
	v.SetDefault("settings.lore.max_context_size", DefaultLoreContextSize)
	v.SetDefault("settings.lore.scan_depth", DefaultLoreScanDepth)
	v.SetDefault("settings.lore.encoding", DefaultLoreEncoding)

	v.SetDefault("settings.transcript.path", DefaultTranscriptPath())
}

// DefaultTranscriptPath is the transcript database under the XDG data directory,
// usually ~/.local/share/weave/transcript.db.
func DefaultTranscriptPath() string {
	return filepath.Join(xdg.DataHome, CliConfigFileName, TranscriptFileName)
}
