package modules

import (
	"github.com/iota-uz/sprintboard/modules/tasks"
	"github.com/iota-uz/sprintboard/modules/tasks/services"
	"github.com/iota-uz/sprintboard/pkg/application"
	"github.com/iota-uz/sprintboard/pkg/configuration"
)

// BuiltInModules returns the modules every server runs with.
func BuiltInModules(conf *configuration.Configuration) []application.Module {
	return []application.Module{
		tasks.NewModule(&tasks.ModuleOptions{
			Import: services.NewImportConfig(conf.Import),
		}),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	return application.Load(app, externalModules...)
}
