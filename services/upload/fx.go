package upload

import (
	"lookbook-compensation/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("upload.service",
	fx.Provide(NewService),
	db.AsModel(&Upload{}),
)
