package main

import (
	"go.uber.org/fx"

	local "github.com/tigerroll/switchprep/pkg/batch/adapter/storage/local"
	usecase "github.com/tigerroll/switchprep/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	bootstrap "github.com/tigerroll/switchprep/pkg/batch/core/config/bootstrap"
	supportConfig "github.com/tigerroll/switchprep/pkg/batch/core/config/support"
	metrics "github.com/tigerroll/switchprep/pkg/batch/infrastructure/metrics"
	inmemoryRepo "github.com/tigerroll/switchprep/pkg/batch/infrastructure/repository/inmemory"
	logging "github.com/tigerroll/switchprep/pkg/batch/listener/logging"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"

	analysisStep "github.com/tigerroll/switchprep/internal/step/analysis"
	builderStep "github.com/tigerroll/switchprep/internal/step/builder"
	extensionStep "github.com/tigerroll/switchprep/internal/step/extension"
)

// GetApplicationOptions builds the uber-fx options of the batch application.
// cfg is loaded by main before the graph exists so flags can override it.
func GetApplicationOptions(cfg *config.Config, embeddedConfig config.EmbeddedConfig, sources bootstrap.JSLSources) []fx.Option {
	var options []fx.Option

	options = append(options, fx.Supply(
		embeddedConfig,
		sources,
		cfg,
	))
	options = append(options, logger.Module)
	options = append(options, config.Module)
	options = append(options, bootstrap.Module)
	options = append(options, metrics.Module)
	options = append(options, inmemoryRepo.Module)
	options = append(options, supportConfig.Module)
	options = append(options, usecase.Module)
	options = append(options, logging.Module)
	options = append(options, local.Module)

	// Study tasklets, registered with the JobFactory under their JSL refs.
	options = append(options, builderStep.Module)
	options = append(options, analysisStep.Module)
	options = append(options, extensionStep.Module)

	return options
}
