package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kredo-pay/kredo_pay/internal/admin"
)

const (
	adminKeyHeader   = "X-Admin-Key"
	adminIdentityKey = "admin_identity"
)

// AdminKey gates admin-path routes on the shared-secret approval gate. It is
// the only authorization accepted there; user tokens never grant admin access.
func AdminKey(gate *admin.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, err := gate.Authorize(c.Get(adminKeyHeader))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "admin key required")
		}
		c.Locals(adminIdentityKey, identity)
		return c.Next()
	}
}

// AdminIdentity returns the gate-authorized admin label, if any.
func AdminIdentity(c *fiber.Ctx) (string, bool) {
	identity, ok := c.Locals(adminIdentityKey).(string)
	return identity, ok && identity != ""
}
