package controllers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/meinhoongagan/doctors-portal/models"
)

// IssueJWT exchanges the email of a registered user for an access token.
func (h *Handler) IssueJWT(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"token": ""})
	}
	user, err := h.Store.FindUserByEmail(c.UserContext(), email)
	if err != nil {
		return fmt.Errorf("find user %s: %w", email, err)
	}
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"token": ""})
	}

	token, err := h.Tokens.Issue(email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"token": token})
}

func (h *Handler) GetUsers(c *fiber.Ctx) error {
	users, err := h.Store.ListUsers(c.UserContext())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	return c.JSON(users)
}

// CheckAdmin reports whether the user with :email is an admin.
func (h *Handler) CheckAdmin(c *fiber.Ctx) error {
	user, err := h.Store.FindUserByEmail(c.UserContext(), c.Params("email"))
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	return c.JSON(fiber.Map{"isAdmin": user.IsAdmin()})
}

// CreateUser stores the posted profile as is, minus any _id or role.
func (h *Handler) CreateUser(c *fiber.Ctx) error {
	doc := map[string]interface{}{}
	if err := c.BodyParser(&doc); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to parse request body: "+err.Error())
	}
	email, _ := doc["email"].(string)
	if email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}
	delete(doc, "_id")
	delete(doc, "role")

	result, err := h.Store.InsertUser(c.UserContext(), bson.M(doc))
	if errors.Is(err, models.ErrDuplicateKey) {
		return c.JSON(models.SoftFailure{
			Acknowledged: false,
			Message:      fmt.Sprintf("User %s already exists", email),
		})
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return c.JSON(result)
}

// MakeAdmin grants the admin role to the user :id. Callers pass RequireAdmin first.
func (h *Handler) MakeAdmin(c *fiber.Ctx) error {
	id, err := objectID(c, "user")
	if err != nil {
		return err
	}

	result, err := h.Store.GrantAdmin(c.UserContext(), id)
	if err != nil {
		return fmt.Errorf("grant admin to %s: %w", id.Hex(), err)
	}
	return c.JSON(result)
}
