package compensation

import (
	"lookbook-compensation/pkg/db"
	"lookbook-compensation/services/notification"

	"go.uber.org/fx"
)

var Module = fx.Module("compensation.service",
	fx.Provide(
		NewService,
		func(n *notification.Service) Notifier { return n },
	),
	db.AsModel(&Policy{}),
	db.AsModel(&PolicyUpload{}),
	db.AsModel(&PolicyHistory{}),
)

var Gateway = fx.Module("compensation.gateway",
	fx.Invoke(RegisterRoutes),
)

var Worker = fx.Module("compensation.worker",
	fx.Invoke(RegisterTasks),
)
