package report

import "go.uber.org/fx"

var Module = fx.Module("report.service",
	fx.Provide(NewService),
)

var Gateway = fx.Module("report.gateway",
	fx.Invoke(RegisterRoutes),
)
