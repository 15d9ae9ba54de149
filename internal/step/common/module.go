package common

import (
	"go.uber.org/fx"

	jsl "github.com/tigerroll/switchprep/pkg/batch/core/config/jsl"
	support "github.com/tigerroll/switchprep/pkg/batch/core/config/support"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

// Component provides the jsl.ComponentBuilder returned by constructor under
// the name ref and registers it with the JobFactory. ref must match the
// 'ref' attribute of the tasklet in JSL.
func Component(ref string, constructor interface{}) fx.Option {
	tag := `name:"` + ref + `"`
	return fx.Options(
		fx.Provide(fx.Annotate(constructor, fx.ResultTags(tag))),
		fx.Invoke(fx.Annotate(registrar(ref), fx.ParamTags(``, tag))),
	)
}

func registrar(ref string) func(*support.JobFactory, jsl.ComponentBuilder) {
	return func(jf *support.JobFactory, builder jsl.ComponentBuilder) {
		jf.RegisterComponentBuilder(ref, builder)
		logger.Debugf("ComponentBuilder registered with JobFactory. JSL ref: '%s'", ref)
	}
}
