package notification

import (
	"lookbook-compensation/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(NewService),
	db.AsModel(&Notification{}),
)

var Gateway = fx.Module("notification.gateway",
	fx.Invoke(RegisterRoutes),
)
