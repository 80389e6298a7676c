package earning

import (
	"lookbook-compensation/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("earning.service",
	fx.Provide(NewService),
	db.AsModel(&Entry{}),
)

var Gateway = fx.Module("earning.gateway",
	fx.Invoke(RegisterRoutes),
)
