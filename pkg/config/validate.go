package config

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"

	errUtils "github.com/cloudposse/weave/errors"
	"github.com/cloudposse/weave/pkg/ai/types"
	"github.com/cloudposse/weave/pkg/filter"
	log "github.com/cloudposse/weave/pkg/logger"
	"github.com/cloudposse/weave/pkg/schema"
)

// Validate checks cross-field constraints that decoding cannot express.
// Provider-specific tool preconditions are not checked here: a missing data source id
// or missing custom parameters only skips the pipeline at run time.
func Validate(cfg *schema.Configuration) error {
	if _, err := log.ParseLogLevel(cfg.Logs.Level); err != nil {
		return invalid(err, "logs.level")
	}

	for name, p := range cfg.Settings.Providers {
		if p == nil {
			return invalid(fmt.Errorf("provider `%s` is empty", name), "settings.providers."+name)
		}
		if p.Type == "" {
			return invalid(fmt.Errorf("%w: provider `%s` has no type", errUtils.ErrInvalidProviderType, name), "settings.providers."+name+".type")
		}
	}

	r := &cfg.Settings.Retrieval

	if r.Injection.Role == types.RoleTool {
		return invalid(fmt.Errorf("%w `tool`: injected messages must be system, user or assistant", errUtils.ErrInvalidRole), "settings.retrieval.injection.role")
	}

	if rt := r.Retry; rt.MaxAttempts < 0 || rt.InitialDelay < 0 || rt.MaxDelay < 0 || rt.MaxElapsedTime < 0 {
		return invalid(fmt.Errorf("retry attempts and delays must not be negative"), "settings.retrieval.retry")
	}

	filters, err := filter.Compile(r.Filters)
	if err != nil {
		return err
	}

	if r.Filter != "" {
		if !filters.Has(r.Filter) {
			return errUtils.Build(errUtils.ErrFilterNotFound).
				WithContext("filter", r.Filter).
				WithHintf("define `%s` under settings.retrieval.filters", r.Filter).
				WithExitCode(errUtils.ExitCodeUsage).
				Err()
		}
	}

	if r.CustomParameters != "" && !gjson.ValidBytes(jsonc.ToJSON([]byte(r.CustomParameters))) {
		return errUtils.Build(errUtils.ErrMalformedToolParameters).
			WithContext("setting", "settings.retrieval.custom_parameters").
			WithHint("custom parameters must be a JSON object; comments and trailing commas are allowed").
			WithExitCode(errUtils.ExitCodeUsage).
			Err()
	}

	if r.Enabled {
		if _, ok := cfg.Settings.TargetProvider(); !ok {
			log.Warn("Retrieval is enabled but its target is not configured", "target", r.Target)
		}
	}

	return nil
}

func invalid(cause error, setting string) error {
	return errUtils.Build(errUtils.ErrInvalidConfiguration).
		WithCause(cause).
		WithContext("setting", setting).
		WithExitCode(errUtils.ExitCodeUsage).
		Err()
}
