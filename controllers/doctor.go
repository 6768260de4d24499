package controllers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/doctors-portal/models"
)

func (h *Handler) GetDoctors(c *fiber.Ctx) error {
	doctors, err := h.Store.ListDoctors(c.UserContext())
	if err != nil {
		return fmt.Errorf("list doctors: %w", err)
	}
	return c.JSON(doctors)
}

// CreateDoctor accepts JSON, or a multipart form whose optional "image" file is uploaded
// and stored as the doctor's portrait URL.
func (h *Handler) CreateDoctor(c *fiber.Ctx) error {
	doctor := new(models.Doctor)
	if err := h.parseBody(c, doctor); err != nil {
		return err
	}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		url, err := h.uploadPortrait(c, doctor)
		if err != nil {
			return err
		}
		if url != "" {
			doctor.Image = url
		}
	}

	result, err := h.Store.InsertDoctor(c.UserContext(), doctor)
	if err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}
	return c.JSON(result)
}

func (h *Handler) uploadPortrait(c *fiber.Ctx, doctor *models.Doctor) (string, error) {
	header, err := c.FormFile("image")
	if err != nil {
		// no image part
		return "", nil
	}
	if h.Images == nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "image upload is not configured")
	}

	file, err := header.Open()
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "cannot read image: "+err.Error())
	}
	defer file.Close()

	url, err := h.Images.UploadImage(c.UserContext(), file, doctorPublicID(doctor.Email))
	if err != nil {
		h.Log.Error().Err(err).Str("doctor", doctor.Email).Msg("portrait upload failed")
		return "", fiber.NewError(fiber.StatusBadGateway, "failed to upload image")
	}
	return url, nil
}

func doctorPublicID(email string) string {
	return strings.NewReplacer("@", "_at_", ".", "_").Replace(email)
}

// DeleteDoctor removes at most one doctor.
func (h *Handler) DeleteDoctor(c *fiber.Ctx) error {
	id, err := objectID(c, "doctor")
	if err != nil {
		return err
	}

	result, err := h.Store.DeleteDoctor(c.UserContext(), id)
	if err != nil {
		return fmt.Errorf("delete doctor %s: %w", id.Hex(), err)
	}
	return c.JSON(result)
}
