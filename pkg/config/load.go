package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	errUtils "github.com/cloudposse/weave/errors"
	log "github.com/cloudposse/weave/pkg/logger"
	"github.com/cloudposse/weave/pkg/schema"
)

// LoadOptions carries command-line overrides.
type LoadOptions struct {
	// ConfigPath is an explicit config file. When set it must exist.
	ConfigPath string
	LogsLevel  string
	LogsFile   string
}

// Load reads the configuration from the following locations (from lower to higher priority):
// defaults, $XDG_CONFIG_HOME/weave/weave.yaml, ./weave.yaml, $WEAVE_CONFIG_PATH, --config,
// then WEAVE_* environment variables and command-line flags.
func Load(opts LoadOptions) (schema.Configuration, error) {
	var cfg schema.Configuration

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetTypeByDefaultValue(true)
	setDefaultConfiguration(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readConfig(v, opts.ConfigPath); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return cfg, errUtils.Build(errUtils.ErrInvalidConfiguration).
			WithCause(err).
			WithContext("file", v.ConfigFileUsed()).
			WithHint("check the enumerated values: roles are system|user|assistant, positions start|depth, tool choices auto|required").
			WithExitCode(errUtils.ExitCodeUsage).
			Err()
	}

	cfg.CliConfigPath = v.ConfigFileUsed()
	if cfg.CliConfigPath != "" && cfg.BasePath == "" {
		cfg.BasePath = filepath.Dir(cfg.CliConfigPath)
	}

	if opts.LogsLevel != "" {
		cfg.Logs.Level = opts.LogsLevel
	}
	if opts.LogsFile != "" {
		cfg.Logs.File = opts.LogsFile
	}

	if err := Validate(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func readConfig(v *viper.Viper, explicit string) error {
	switch {
	case explicit != "":
		v.SetConfigFile(expandPath(explicit))
	case os.Getenv(ConfigPathEnvVar) != "":
		path := expandPath(os.Getenv(ConfigPathEnvVar))
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			v.SetConfigName(CliConfigFileName)
			v.AddConfigPath(path)
		} else {
			v.SetConfigFile(path)
		}
	default:
		v.SetConfigName(CliConfigFileName)
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, CliConfigFileName))
	}

	err := v.ReadInConfig()
	if err == nil {
		log.Debug("Loaded configuration", "file", v.ConfigFileUsed())
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) && explicit == "" {
		log.Debug("'weave.yaml' config was not found, using defaults", "paths", "current dir, "+filepath.Join(xdg.ConfigHome, CliConfigFileName))
		return nil
	}

	return errUtils.Build(errUtils.ErrReadConfig).
		WithCause(err).
		WithContext("file", v.ConfigFileUsed()).
		WithExitCode(errUtils.ExitCodeUsage).
		Err()
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// ExpandPath resolves ~ and makes relative paths relative to the config's base path.
func ExpandPath(cfg *schema.Configuration, path string) string {
	if path == "" {
		return ""
	}
	path = expandPath(path)
	if !filepath.IsAbs(path) && cfg != nil && cfg.BasePath != "" {
		path = filepath.Join(cfg.BasePath, path)
	}
	return path
}
