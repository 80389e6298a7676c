package httpapi

import (
	"net/http"

	"lookbook-compensation/pkg/config"
	"lookbook-compensation/pkg/health"
	"lookbook-compensation/pkg/middleware"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("httpapi",
	health.Module,
	fx.Provide(
		NewEnforcer,
		NewEngine,
	),
)

type EnforcerParams struct {
	fx.In
	Config *config.Config
}

// NewEnforcer loads the casbin model and policy files. It returns nil when
// access control is not configured.
func NewEnforcer(p EnforcerParams) (casbin.IEnforcer, error) {
	ac := p.Config.AccessControl
	if ac.Model == "" {
		zap.L().Warn("access control disabled, admin routes are open")
		return nil, nil
	}
	return casbin.NewEnforcer(ac.Model, ac.Policy)
}

type EngineParams struct {
	fx.In
	Config   *config.Config
	Health   health.HealthService
	Enforcer casbin.IEnforcer `optional:"true"`
}

// NewEngine builds the gin engine. Health routes and /metrics are mounted before the
// authorization middleware so they stay reachable without a role.
func NewEngine(p EngineParams) *gin.Engine {
	if p.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Error())

	r.GET("/healthz", p.Health.Liveness)
	r.GET("/readyz", p.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "not_found", "message": "route not found"}})
	})

	if p.Enforcer != nil {
		r.Use(middleware.Authorize(p.Enforcer))
	}
	return r
}
