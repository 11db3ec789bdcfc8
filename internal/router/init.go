package router

import (
	userapp "github.com/oksasatya/go-user-service/internal/application"
	"github.com/oksasatya/go-user-service/internal/container"
	pginfra "github.com/oksasatya/go-user-service/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/go-user-service/internal/interface/http"
	"github.com/oksasatya/go-user-service/internal/router/modules"
)

// InitModules initializes all application modules and registers them with the
// router registry. Called once during startup after the container is filled.
func InitModules(r *Registry) {
	repo := pginfra.NewUserRepository(container.GetPGPool())
	audit := pginfra.NewAuditRepository(container.GetPGPool())

	service := userapp.NewService(
		repo,
		audit,
		container.GetJWT(),
		container.GetLogger(),
		container.GetES(),
		container.GetConfig().ESUsersIndex,
	)

	handler := handlers.NewUserHandler(service, container.GetLogger())

	r.Add(modules.NewUserModule(handler, container.GetJWT()))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
