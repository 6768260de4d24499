package controllers

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/meinhoongagan/doctors-portal/metrics"
	"github.com/meinhoongagan/doctors-portal/models"
	"github.com/meinhoongagan/doctors-portal/utils"
)

// Store is the document store the handlers work against.
type Store interface {
	ListAppointmentOptions(ctx context.Context) ([]models.AppointmentOption, error)
	ListAvailableOptions(ctx context.Context, date string) ([]models.AppointmentOption, error)
	ListSpecialties(ctx context.Context) ([]models.Specialty, error)

	ListBookingsByDate(ctx context.Context, date string) ([]models.Booking, error)
	ListBookingsByEmail(ctx context.Context, email string) ([]models.Booking, error)
	FindBooking(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)
	FindDuplicateBooking(ctx context.Context, b *models.Booking) (*models.Booking, error)
	InsertBooking(ctx context.Context, b *models.Booking) (*models.InsertResult, error)

	ConfirmPayment(ctx context.Context, p *models.Payment) (*models.InsertResult, error)

	ListUsers(ctx context.Context) ([]bson.M, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	InsertUser(ctx context.Context, doc bson.M) (*models.InsertResult, error)
	GrantAdmin(ctx context.Context, id primitive.ObjectID) (*models.UpdateResult, error)

	ListDoctors(ctx context.Context) ([]models.Doctor, error)
	InsertDoctor(ctx context.Context, d *models.Doctor) (*models.InsertResult, error)
	DeleteDoctor(ctx context.Context, id primitive.ObjectID) (*models.DeleteResult, error)
}

// Handler carries the dependencies of every route handler. Images and Mailer are optional.
type Handler struct {
	Store    Store
	Tokens   *utils.TokenIssuer
	Payments utils.PaymentGateway
	Images   utils.ImageUploader
	Mailer   utils.Mailer
	Metrics  *metrics.Metrics
	Log      zerolog.Logger

	validate *validator.Validate
	mail     *sync.WaitGroup
}

func NewHandler(h Handler) *Handler {
	h.validate = validator.New()
	h.mail = &sync.WaitGroup{}
	return &h
}

// WaitForEmails blocks until every booking email in flight is sent or timeout passes.
// It reports whether all of them finished.
func (h *Handler) WaitForEmails(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		h.mail.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// parseBody decodes and validates the request body into out.
func (h *Handler) parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to parse request body: "+err.Error())
	}
	if err := h.validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	return nil
}

// objectID parses the :id route parameter.
func objectID(c *fiber.Ctx, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return primitive.NilObjectID, fiber.NewError(fiber.StatusBadRequest, "invalid "+what+" id")
	}
	return id, nil
}
