package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.SwitchPrep.System.Logging
}

// NewStudyConfigProvider extracts *StudyConfig from *Config.
func NewStudyConfigProvider(cfg *Config) *StudyConfig {
	return &cfg.SwitchPrep.Study
}

// Module provides configuration-derived components to Fx.
// *Config itself is supplied by main, which needs it before the graph is built.
var Module = fx.Options(
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewStudyConfigProvider),
)
