package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/pkg/auth"
	apperrors "github.com/qline/booking-api/pkg/errors"
	"github.com/qline/booking-api/pkg/httputil"
)

const (
	// HeaderXUserID carries the anonymous customer identity on public
	// endpoints. Clients generate it once and send it on every request so
	// their appointments stay addressable without an account.
	HeaderXUserID = "X-User-ID"

	contextActor = "actor"
)

type AuthMiddleware struct {
	jwtSvc auth.JWTService
}

func NewAuthMiddleware(jwtSvc auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtSvc: jwtSvc}
}

// Authenticate requires a valid staff bearer token and stores the resulting
// actor in the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := m.actorFromToken(c)
		if err != nil {
			httputil.RespondWithError(c, err)
			c.Abort()
			return
		}

		c.Set(contextActor, actor)
		c.Next()
	}
}

// Identify resolves the actor on public endpoints: a bearer token wins when
// present, otherwise the anonymous customer identity from the X-User-ID
// header is used, minting a fresh one when the client sends none.
func (m *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			actor, err := m.actorFromToken(c)
			if err != nil {
				httputil.RespondWithError(c, err)
				c.Abort()
				return
			}
			c.Set(contextActor, actor)
			c.Next()
			return
		}

		userID, err := uuid.Parse(c.GetHeader(HeaderXUserID))
		if err != nil {
			userID = uuid.New()
		}
		c.Header(HeaderXUserID, userID.String())

		c.Set(contextActor, model.Actor{
			ID:   userID,
			Role: model.RoleUser,
		})
		c.Next()
	}
}

// RequireAdmin aborts unless the authenticated actor is an admin. Must run
// after Authenticate.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetActor(c).Role != model.RoleAdmin {
			httputil.RespondWithError(c, apperrors.Unauthorized("admin privileges required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) actorFromToken(c *gin.Context) (model.Actor, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return model.Actor{}, apperrors.Unauthorized("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return model.Actor{}, apperrors.Unauthorized("invalid authorization format")
	}

	claims, err := m.jwtSvc.ValidateToken(parts[1])
	if err != nil {
		return model.Actor{}, apperrors.Unauthorized("invalid token")
	}

	return claims.Actor(), nil
}

// GetActor returns the actor resolved by Authenticate or Identify. The zero
// actor is returned on routes without either middleware.
func GetActor(c *gin.Context) model.Actor {
	if v, ok := c.Get(contextActor); ok {
		if actor, ok := v.(model.Actor); ok {
			return actor
		}
	}
	return model.Actor{}
}
