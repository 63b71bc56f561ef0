package tasks

import (
	"github.com/iota-uz/sprintboard/modules/tasks/infrastructure/persistence"
	"github.com/iota-uz/sprintboard/modules/tasks/presentation/controllers"
	"github.com/iota-uz/sprintboard/modules/tasks/services"
	"github.com/iota-uz/sprintboard/pkg/application"
)

type ModuleOptions struct {
	Import services.ImportConfig
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	memberRepo := persistence.NewMemberRepository()
	app.RegisterServices(
		services.NewMemberService(memberRepo, app.EventPublisher()),
		services.NewTaskImportService(
			memberRepo,
			persistence.NewProjectRepository(),
			persistence.NewSprintRepository(),
			persistence.NewTaskRepository(),
			app.EventPublisher(),
			m.options.Import,
		),
	)
	app.RegisterControllers(
		controllers.NewMemberController(app),
		controllers.NewTaskImportController(app),
	)
	return nil
}

func (m *Module) Name() string {
	return "tasks"
}
