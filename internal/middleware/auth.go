package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"

	"tournament-ledger/internal/models"
	"tournament-ledger/internal/services"
	"tournament-ledger/pkg/common"
)

const actorKey = "actor"

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse(message, nil, http.StatusUnauthorized))
}

// Auth validates the bearer token issued by the identity provider and stores
// the caller as a services.Actor on the context.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if header == "" || tokenString == header {
			unauthorized(c, "Please login for access")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			zap.L().Debug("Rejected bearer token", zap.Error(err))
			unauthorized(c, "Please login for access")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "Invalid token claims")
			return
		}
		userID, ok := claims["user_id"].(float64)
		if !ok || userID < 1 {
			unauthorized(c, "Invalid token claims")
			return
		}

		role := models.RoleUser
		if r, _ := claims["role"].(string); r == string(models.RoleAdmin) {
			role = models.RoleAdmin
		}

		c.Set(actorKey, services.Actor{UserID: uint(userID), Role: role})
		c.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			unauthorized(c, "Please login for access")
			return
		}
		if !actor.IsAdmin() {
			zap.L().Warn("Non-admin attempted admin access", zap.Uint("user_id", actor.UserID), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusForbidden, common.NewErrorResponse("Admin access required", nil, http.StatusForbidden))
			return
		}
		c.Next()
	}
}

func ActorFrom(c *gin.Context) (services.Actor, bool) {
	v, exists := c.Get(actorKey)
	if !exists {
		return services.Actor{}, false
	}
	actor, ok := v.(services.Actor)
	return actor, ok
}

// NewToken signs a token in the format Auth accepts.
func NewToken(secret string, userID uint, role models.Role, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}
