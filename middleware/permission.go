package middleware

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/doctors-portal/models"
	"github.com/meinhoongagan/doctors-portal/utils"
)

// UserFinder looks users up by email.
type UserFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// RequireAdmin lets the request through only when the caller is an admin. It must run
// after Protected.
func RequireAdmin(users UserFinder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		email := Email(c)
		if email == "" {
			return unauthorized(c)
		}

		user, err := users.FindUserByEmail(c.UserContext(), email)
		if err != nil {
			return fmt.Errorf("load caller %s: %w", email, err)
		}
		if !user.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(utils.ErrorResponse{
				Message: "Forbidden user",
			})
		}

		return c.Next()
	}
}
