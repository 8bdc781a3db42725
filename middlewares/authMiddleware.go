package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/utils"
)

const bearerPrefix = "bearer "

var errUnauthorized = utils.NewAppError(utils.KindAuthentication, "unauthorized", "unauthorized")

// AuthMiddleware verifies an optional bearer token and puts its claims on the request context.
// Requests without a token pass through; RequireAuth decides whether a route needs one.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := strings.TrimSpace(c.Request.Header.Get("Authorization"))
		if auth == "" {
			c.Next()
			return
		}
		if len(auth) <= len(bearerPrefix) || !strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
			RespondError(c, errUnauthorized.WithMessage("malformed authorization header"))
			c.Abort()
			return
		}
		token := strings.TrimSpace(auth[len(bearerPrefix):])

		claims, err := utils.JwtValidate(token)
		if err != nil {
			RespondError(c, errUnauthorized.WithMessage("invalid or expired token"))
			c.Abort()
			return
		}
		userId, err := claims.UserId()
		if err != nil {
			RespondError(c, errUnauthorized.WithMessage("invalid or expired token"))
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		revoked, err := utils.IsTokenRevoked(ctx, claims.Id)
		if err != nil {
			config.LogError(config.GetLogger(), "AuthMiddleware", "IsTokenRevoked", "check token revocation", claims.Id, err)
		} else if revoked {
			RespondError(c, errUnauthorized.WithMessage("token has been revoked"))
			c.Abort()
			return
		}

		ctx = utils.SetTokenInContext(ctx, token)
		ctx = utils.SetTokenIdInContext(ctx, claims.Id)
		ctx = utils.SetTokenExpiryInContext(ctx, claims.ExpiresAt)
		ctx = utils.SetTenantIdInContext(ctx, claims.TenantId)
		ctx = utils.SetUserIdInContext(ctx, userId)
		ctx = utils.SetUserRoleInContext(ctx, claims.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth rejects requests that AuthMiddleware did not authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		tenantId, ok := utils.GetTenantIdFromContext(ctx)
		if !ok || tenantId == "" {
			RespondError(c, errUnauthorized.WithMessage("authentication required"))
			c.Abort()
			return
		}
		if userId, ok := utils.GetUserIdFromContext(ctx); !ok || userId <= 0 {
			RespondError(c, errUnauthorized.WithMessage("authentication required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole restricts a route to the given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := utils.GetUserRoleFromContext(c.Request.Context())
		for _, r := range roles {
			if strings.EqualFold(r, role) {
				c.Next()
				return
			}
		}
		RespondError(c, utils.NewAppError(utils.KindAuthorization, "forbidden", "insufficient role"))
		c.Abort()
	}
}

// CurrentIdentity returns tenant and user placed on the context by AuthMiddleware.
func CurrentIdentity(c *gin.Context) (string, int, bool) {
	ctx := c.Request.Context()
	tenantId, ok := utils.GetTenantIdFromContext(ctx)
	if !ok || tenantId == "" {
		return "", 0, false
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return "", 0, false
	}
	return tenantId, userId, true
}
