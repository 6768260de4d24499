package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/meinhoongagan/doctors-portal/controllers"
	"github.com/meinhoongagan/doctors-portal/db"
	"github.com/meinhoongagan/doctors-portal/metrics"
	"github.com/meinhoongagan/doctors-portal/models"
	"github.com/meinhoongagan/doctors-portal/utils"
)

const secret = "routes-test-secret"

type stubGateway struct{}

func (stubGateway) CreatePaymentIntent(_ context.Context, amount int64) (string, error) {
	return "pi_e2e_secret", nil
}

func newApp(t *testing.T) (*fiber.App, *db.MemoryStore) {
	t.Helper()
	store := db.NewMemoryStore()
	catalog, err := db.DefaultCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if _, err := store.SeedCatalog(context.Background(), catalog, true); err != nil {
		t.Fatalf("seed: %v", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	handler := controllers.NewHandler(controllers.Handler{
		Store:    store,
		Tokens:   utils.NewTokenIssuer(secret, time.Hour),
		Payments: stubGateway{},
		Metrics:  m,
		Log:      zerolog.Nop(),
	})

	app := New(Options{
		Handler:     handler,
		TokenSecret: secret,
		CORSOrigins: "*",
		Metrics:     m,
		Gatherer:    registry,
		Log:         zerolog.Nop(),
	})
	return app, store
}

func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func register(t *testing.T, app *fiber.App, email string) (id, token string) {
	t.Helper()
	_, raw := call(t, app, http.MethodPost, "/users", "", map[string]string{"email": email, "name": "Test User"})
	var res models.InsertResult
	_ = json.Unmarshal(raw, &res)

	_, raw = call(t, app, http.MethodGet, "/jwt?email="+email, "", nil)
	var body map[string]string
	_ = json.Unmarshal(raw, &body)
	if body["token"] == "" {
		t.Fatalf("no token issued for %s", email)
	}
	return res.InsertedID, body["token"]
}

func TestHealth(t *testing.T) {
	app, _ := newApp(t)
	status, raw := call(t, app, http.MethodGet, "/", "", nil)
	if status != http.StatusOK || string(raw) != "Doctor portal server is running" {
		t.Errorf("unexpected health answer %d %q", status, raw)
	}
}

func TestAvailabilityIsIdempotent(t *testing.T) {
	app, _ := newApp(t)
	_, raw := call(t, app, http.MethodGet, "/appointmentOptions", "", nil)
	var catalog []models.AppointmentOption
	_ = json.Unmarshal(raw, &catalog)
	if len(catalog) == 0 || len(catalog[0].Slots) < 2 {
		t.Fatalf("unexpected seeded catalog %s", raw)
	}
	option := catalog[0]

	call(t, app, http.MethodPost, "/bookings", "", map[string]interface{}{
		"email":           "p@example.com",
		"appointmentDate": "Nov 3, 2026",
		"treatment":       option.Name,
		"slot":            option.Slots[1],
		"price":           option.Price,
	})

	path := "/appointmentOptions?date=Nov%203,%202026"
	_, first := call(t, app, http.MethodGet, path, "", nil)
	_, second := call(t, app, http.MethodGet, path, "", nil)
	if !bytes.Equal(first, second) {
		t.Error("repeated availability queries must answer the same")
	}

	var options []models.AppointmentOption
	_ = json.Unmarshal(first, &options)
	if len(options) != len(catalog) {
		t.Fatalf("every option must be listed, got %d of %d", len(options), len(catalog))
	}
	if len(options[0].Slots) != len(option.Slots)-1 {
		t.Errorf("expected one slot fewer, got %v", options[0].Slots)
	}
	for _, s := range options[0].Slots {
		if s == option.Slots[1] {
			t.Errorf("booked slot %q still offered", s)
		}
	}

	_, v2 := call(t, app, http.MethodGet, "/v2/appointmentOptions?date=Nov%203,%202026", "", nil)
	if !bytes.Equal(first, v2) {
		t.Errorf("both availability endpoints must agree:\n%s\n%s", first, v2)
	}
}

func TestTokenLifecycle(t *testing.T) {
	app, _ := newApp(t)
	_, token := register(t, app, "p@example.com")

	status, _ := call(t, app, http.MethodGet, "/bookings?email=p@example.com", token, nil)
	if status != http.StatusOK {
		t.Errorf("own bookings: expected 200, got %d", status)
	}
	status, _ = call(t, app, http.MethodGet, "/bookings?email=other@example.com", token, nil)
	if status != http.StatusForbidden {
		t.Errorf("foreign bookings: expected 403, got %d", status)
	}
	status, _ = call(t, app, http.MethodGet, "/bookings?email=p@example.com", "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", status)
	}
	status, _ = call(t, app, http.MethodGet, "/bookings?email=p@example.com", token[:len(token)-4]+"abcd", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("tampered token: expected 401, got %d", status)
	}
}

func TestAdminGrant(t *testing.T) {
	app, store := newApp(t)
	adminID, adminToken := register(t, app, "admin@example.com")
	userID, userToken := register(t, app, "user@example.com")

	// bootstrap the first admin directly in the store
	oid, err := primitive.ObjectIDFromHex(adminID)
	if err != nil {
		t.Fatalf("admin id: %v", err)
	}
	if _, err := store.GrantAdmin(context.Background(), oid); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}

	status, _ := call(t, app, http.MethodPut, "/users/admin/"+userID, userToken, nil)
	if status != http.StatusForbidden {
		t.Fatalf("non-admin grant: expected 403, got %d", status)
	}
	status, _ = call(t, app, http.MethodGet, "/doctors", userToken, nil)
	if status != http.StatusForbidden {
		t.Errorf("non-admin doctors: expected 403, got %d", status)
	}

	status, raw := call(t, app, http.MethodPut, "/users/admin/"+userID, adminToken, nil)
	if status != http.StatusOK {
		t.Fatalf("admin grant: expected 200, got %d: %s", status, raw)
	}
	var upd models.UpdateResult
	_ = json.Unmarshal(raw, &upd)
	if upd.MatchedCount != 1 || upd.ModifiedCount != 1 {
		t.Errorf("unexpected update %+v", upd)
	}

	_, raw = call(t, app, http.MethodGet, "/users/admin/user@example.com", "", nil)
	if !strings.Contains(string(raw), `"isAdmin":true`) {
		t.Errorf("granted user must be admin, got %s", raw)
	}
	status, _ = call(t, app, http.MethodGet, "/doctors", userToken, nil)
	if status != http.StatusOK {
		t.Errorf("new admin doctors: expected 200, got %d", status)
	}
}

func TestPaymentFlow(t *testing.T) {
	app, _ := newApp(t)
	_, token := register(t, app, "p@example.com")

	_, raw := call(t, app, http.MethodPost, "/bookings", "", map[string]interface{}{
		"email":           "p@example.com",
		"appointmentDate": "Nov 3, 2026",
		"treatment":       "Teeth Orthodontics",
		"slot":            "08.00 AM - 08.30 AM",
		"price":           99,
	})
	var booking models.InsertResult
	_ = json.Unmarshal(raw, &booking)
	if booking.InsertedID == "" {
		t.Fatalf("booking not created: %s", raw)
	}

	_, raw = call(t, app, http.MethodPost, "/create-payment-intent", "", map[string]interface{}{"price": 99})
	if !strings.Contains(string(raw), "pi_e2e_secret") {
		t.Fatalf("expected client secret, got %s", raw)
	}

	status, raw := call(t, app, http.MethodPost, "/payment", "", map[string]interface{}{
		"bookingId":     booking.InsertedID,
		"transactionId": "pi_e2e",
		"price":         99,
		"email":         "p@example.com",
	})
	if status != http.StatusOK {
		t.Fatalf("payment: expected 200, got %d: %s", status, raw)
	}

	_, raw = call(t, app, http.MethodGet, "/bookings?email=p@example.com", token, nil)
	var bookings []models.Booking
	_ = json.Unmarshal(raw, &bookings)
	if len(bookings) != 1 || !bookings[0].Paid || bookings[0].TransactionID != "pi_e2e" {
		t.Errorf("booking must be paid with the transaction id, got %s", raw)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newApp(t)
	call(t, app, http.MethodGet, "/appointmentSpecialty", "", nil)

	status, raw := call(t, app, http.MethodGet, "/metrics", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(raw), `doctors_portal_http_requests_total{method="GET",route="/appointmentSpecialty",status="200"} 1`) {
		t.Errorf("request counter missing from exposition:\n%s", raw)
	}
}

func TestListUsers(t *testing.T) {
	app, _ := newApp(t)
	register(t, app, "a@example.com")
	register(t, app, "b@example.com")

	status, raw := call(t, app, http.MethodGet, "/users", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	var users []map[string]interface{}
	_ = json.Unmarshal(raw, &users)
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %s", raw)
	}
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values) []byte {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return out
}

func TestFormBookingsStayIntact(t *testing.T) {
	app, store := newApp(t)
	ctx := context.Background()

	raw := postForm(t, app, "/bookings", url.Values{
		"email":           {"aaaa@example.com"},
		"appointmentDate": {"Nov 3, 2026"},
		"treatment":       {"Oral Surgery"},
		"slot":            {"08.00 AM - 08.30 AM"},
		"price":           {"99"},
	})
	var first models.InsertResult
	if err := json.Unmarshal(raw, &first); err != nil || !first.Acknowledged {
		t.Fatalf("form booking not stored: %s", raw)
	}

	for i := 0; i < 5; i++ {
		postForm(t, app, "/bookings", url.Values{
			"email":           {"zzzz@example.com"},
			"appointmentDate": {"XXX X, XXXX"},
			"treatment":       {"XXXXXXXXXXXX"},
			"slot":            {"XXXXXXXXXXXXXXXXXXX"},
			"price":           {"1"},
		})
	}

	own, err := store.ListBookingsByEmail(ctx, "aaaa@example.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(own) != 1 {
		t.Fatalf("expected the first booking to survive later requests, got %+v", own)
	}
	b := own[0]
	if b.ID.Hex() != first.InsertedID || b.AppointmentDate != "Nov 3, 2026" || b.Treatment != "Oral Surgery" || b.Slot != "08.00 AM - 08.30 AM" {
		t.Errorf("stored booking changed: %+v", b)
	}

	onDate, _ := store.ListBookingsByDate(ctx, "Nov 3, 2026")
	if len(onDate) != 1 {
		t.Errorf("expected one booking on Nov 3, 2026, got %d", len(onDate))
	}

	// the same patient, treatment and date is still recognised as a duplicate
	raw = postForm(t, app, "/bookings", url.Values{
		"email":           {"aaaa@example.com"},
		"appointmentDate": {"Nov 3, 2026"},
		"treatment":       {"Oral Surgery"},
		"slot":            {"09.00 AM - 09.30 AM"},
		"price":           {"99"},
	})
	if !strings.Contains(string(raw), `"acknowledged":false`) {
		t.Errorf("expected a duplicate refusal, got %s", raw)
	}
}
