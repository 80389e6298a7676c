package member

import (
	"lookbook-compensation/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("member.service",
	fx.Provide(NewService),
	db.AsModel(&Member{}),
)

var Gateway = fx.Module("member.gateway",
	fx.Invoke(RegisterRoutes),
)
