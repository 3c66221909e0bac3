package server

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// NewSessionMiddleware extracts the caller's identity from an HS256 bearer
// token. Sessions are optional: no secret means every request is anonymous,
// and a missing token is never an error. A token that is present but invalid
// is rejected so a stale session fails loudly instead of silently degrading
// to anonymous.
func NewSessionMiddleware(secret string, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Next()
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_auth_scheme", "Unauthorized",
				"Authorization header must use Bearer scheme")
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			logger.Warn().Err(err).Str("path", c.Path()).Msg("rejected invalid session token")
			return problemResponse(c, fiber.StatusUnauthorized,
				"invalid_session", "Unauthorized",
				"Invalid or expired session token")
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if userID, ok := claims["user_id"].(string); ok {
				c.Locals("user_id", userID)
			}
		}
		return c.Next()
	}
}

// userID returns the authenticated user, or "" for anonymous requests.
func userID(c *fiber.Ctx) string {
	return localString(c, "user_id")
}
