package middleware

import (
	"lookbook-compensation/pkg/errutil"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ActorRoleHeader = "X-Actor-Role"
	AnonymousRole   = "anonymous"
)

// Authorize checks (role, path, method) against the casbin policy. The role
// comes from the X-Actor-Role header set by the upstream gateway.
func Authorize(e casbin.IEnforcer) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetHeader(ActorRoleHeader)
		if role == "" {
			role = AnonymousRole
		}

		ok, err := e.Enforce(role, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			zap.L().Error("casbin enforce failed", zap.String("role", role), zap.Error(err))
			_ = c.Error(errutil.Internal("authorization failed", err))
			c.Abort()
			return
		}
		if !ok {
			_ = c.Error(errutil.Forbidden("role is not allowed to access this resource", nil))
			c.Abort()
			return
		}

		c.Next()
	}
}
