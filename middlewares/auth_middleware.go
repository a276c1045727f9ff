package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restroflow/services"
	"github.com/yeremiapane/restroflow/utils"
)

const (
	ctxActor = "actor"
	ctxRole  = "role"
)

// AuthMiddleware resolves the bearer token into an Actor for the handlers.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header must use the Bearer scheme"))
			c.Abort()
			return
		}

		if !authenticate(c, strings.TrimPrefix(authHeader, "Bearer ")) {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid or expired token"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, tokenString string) bool {
	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		utils.InfoLogger.WithField("request_id", c.GetString(ctxRequestID)).Debugf("Rejected token: %v", err)
		return false
	}

	actor := services.AdminActor(claims.Username)
	if claims.Role == utils.RoleWaiter {
		actor = services.WaiterActor(claims.WaiterID, claims.Username)
	}
	c.Set(ctxActor, actor)
	c.Set(ctxRole, claims.Role)
	return true
}

// ActorFrom returns the caller set by the auth middleware.
func ActorFrom(c *gin.Context) (services.Actor, bool) {
	v, ok := c.Get(ctxActor)
	if !ok {
		return services.Actor{}, false
	}
	actor, ok := v.(services.Actor)
	return actor, ok
}

func RoleFrom(c *gin.Context) string {
	return c.GetString(ctxRole)
}
