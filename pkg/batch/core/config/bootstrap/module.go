// Package bootstrap turns the job definitions compiled into the binary into
// the *jsl.Definitions the JobFactory builds jobs from.
package bootstrap

import (
	"io/fs"
	"sort"

	"go.uber.org/fx"

	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	jsl "github.com/tigerroll/switchprep/pkg/batch/core/config/jsl"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

const moduleName = "bootstrap"

// JSLSources are JSL documents, one job per document.
type JSLSources []jsl.JSLDefinitionBytes

// ReadJSLSources reads every file of fsys matching pattern, in name order.
func ReadJSLSources(fsys fs.FS, pattern string) (JSLSources, error) {
	names, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "invalid JSL pattern '%s'", pattern, err)
	}
	if len(names) == 0 {
		return nil, exception.MissingInput(moduleName, pattern, nil)
	}
	sort.Strings(names)
	out := make(JSLSources, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, exception.NewBatchErrorf(moduleName, "failed to read JSL file '%s'", name, err)
		}
		out = append(out, data)
	}
	return out, nil
}

// NewDefinitions loads and validates every source.
func NewDefinitions(sources JSLSources) (*jsl.Definitions, error) {
	defs := jsl.NewDefinitions()
	for _, src := range sources {
		if err := defs.LoadFromBytes(src); err != nil {
			return nil, err
		}
	}
	logger.Infof("Loaded %d JSL job definition(s): %v", len(defs.IDs()), defs.IDs())
	return defs, nil
}

// ApplyLoggingConfigHook applies the configured log level.
func ApplyLoggingConfigHook(cfg *config.Config) {
	if cfg.SwitchPrep.System.Logging.Level != "" {
		logger.SetLogLevel(cfg.SwitchPrep.System.Logging.Level)
		logger.Debugf("Log level set to: %s", cfg.SwitchPrep.System.Logging.Level)
	}
}

// Module provides *jsl.Definitions from the supplied JSLSources.
var Module = fx.Options(
	fx.Provide(NewDefinitions),
	fx.Invoke(ApplyLoggingConfigHook),
)
