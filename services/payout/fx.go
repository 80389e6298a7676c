package payout

import (
	"lookbook-compensation/pkg/db"
	"lookbook-compensation/services/notification"

	"go.uber.org/fx"
)

var Module = fx.Module("payout.service",
	fx.Provide(
		NewService,
		func(n *notification.Service) Notifier { return n },
	),
	db.AsModel(&PayoutBatch{}),
)

var Gateway = fx.Module("payout.gateway",
	fx.Invoke(RegisterRoutes),
)
