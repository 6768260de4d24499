package middleware

import (
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"

	"github.com/meinhoongagan/doctors-portal/utils"
)

const emailKey = "decodedEmail"

// Protected verifies the bearer token and stores the email claim for later handlers.
func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		Claims:       &utils.Claims{},
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return unauthorized(c)
			}
			claims, ok := token.Claims.(*utils.Claims)
			if !ok || claims.Email == "" {
				return unauthorized(c)
			}
			c.Locals(emailKey, claims.Email)
			return c.Next()
		},
	})
}

// Email returns the verified email of the caller, or "" outside Protected routes.
func Email(c *fiber.Ctx) string {
	email, _ := c.Locals(emailKey).(string)
	return email
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{
		Message: "unauthorized access",
	})
}

// jwtError answers every token failure, missing header included, with 401.
func jwtError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{
		Message: "unauthorized access",
		Error:   err.Error(),
	})
}
