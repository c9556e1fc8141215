package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userEmailKey = "user_email"

// UserAuth validates HS256 bearer tokens minted by the external auth service
// and exposes the email claim as the caller identity. Token issuance lives
// outside this service; only verification happens here.
func UserAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		email, _ := claims["email"].(string)
		if email == "" {
			return fiber.NewError(http.StatusUnauthorized, "token missing email claim")
		}

		c.Locals(userEmailKey, email)
		return c.Next()
	}
}

// UserEmail returns the authenticated caller's email, if any.
func UserEmail(c *fiber.Ctx) (string, bool) {
	email, ok := c.Locals(userEmailKey).(string)
	return email, ok && email != ""
}
