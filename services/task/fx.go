package task

import (
	"lookbook-compensation/pkg/db"
	"lookbook-compensation/services/compensation"

	"go.uber.org/fx"
)

var Module = fx.Module("task.service",
	fx.Provide(
		NewService,
		NewScheduler,
		func(c *compensation.Service) Sweeper { return c },
	),
	db.AsModel(&Job{}),
)

var Gateway = fx.Module("task.gateway",
	fx.Invoke(RegisterRoutes),
)

// Worker mounts the sweep handler and starts the nightly scheduler.
var Worker = fx.Module("task.worker",
	fx.Invoke(RegisterTasks),
	fx.Invoke(StartScheduler),
)
