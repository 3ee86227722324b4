package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// userIDKey is the fiber locals key the middleware stores the caller's
// user id under.
const userIDKey = "userID"

// RequireUser extracts the caller identity from the X-User-ID header.
// Identity provisioning lives upstream (gateway / auth service); this
// middleware only rejects requests that arrive without one.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get("X-User-ID")
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthenticated: missing X-User-ID header",
			})
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthenticated: invalid X-User-ID header",
			})
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// currentUser reads the user id stored by RequireUser.
func currentUser(c *fiber.Ctx) int64 {
	return c.Locals(userIDKey).(int64)
}
