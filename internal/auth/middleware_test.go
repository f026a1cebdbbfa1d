package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/health-records-service/internal/domain"
)

type stubUserRepo struct {
	byEmail map[string]*domain.User
}

func (s *stubUserRepo) Create(context.Context, *domain.User) error { return nil }
func (s *stubUserRepo) Update(context.Context, *domain.User) error { return nil }
func (s *stubUserRepo) Delete(context.Context, int64) error        { return nil }
func (s *stubUserRepo) GetByID(context.Context, int64) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}
func (s *stubUserRepo) List(context.Context) ([]domain.User, error) { return nil, nil }
func (s *stubUserRepo) ListByRole(context.Context, domain.Role) ([]domain.User, error) {
	return nil, nil
}

const testOrigin = "http://localhost:5173"

func newTestApp(t *testing.T, repo *stubUserRepo) (*fiber.App, *TokenManager) {
	t.Helper()
	tokens := NewTokenManager("middleware-test-secret", 30)
	mw := NewMiddleware(tokens, repo, zap.NewNop(), testOrigin)

	app := fiber.New()
	app.Use(mw.Handle)
	handler := func(c *fiber.Ctx) error {
		if user, ok := CurrentUser(c); ok {
			return c.JSON(fiber.Map{"email": user.Email})
		}
		return c.JSON(fiber.Map{"email": ""})
	}
	app.All("/api/auth/register", handler)
	app.All("/api/appointments/simple", handler)
	app.All("/api/appointments", handler)
	app.All("/api/notifications", handler)
	return app, tokens
}

func TestShouldBypass(t *testing.T) {
	cases := []struct {
		method, path string
		want         bool
	}{
		{"POST", "/api/auth/register", true},
		{"GET", "/api/public/doctors", true},
		{"GET", "/api/open/anything", true},
		{"GET", "/api/test/ping", true},
		{"POST", "/simple/booking", true},
		{"POST", "/direct/booking", true},
		{"POST", "/direct-appointment", true},
		{"GET", "/public-test/x", true},
		{"GET", "/no-security/x", true},
		{"POST", "/api/appointments/simple", true},
		{"OPTIONS", "/api/appointments", true},
		{"GET", "/api/appointments", false},
		{"GET", "/api/notifications", false},
		{"GET", "/api/appointments/simpler", false},
	}
	for _, tc := range cases {
		if got := ShouldBypass(tc.method, tc.path); got != tc.want {
			t.Fatalf("ShouldBypass(%s, %s) = %v; want %v", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestMiddlewareAnonymousPassThrough(t *testing.T) {
	app, _ := newTestApp(t, &stubUserRepo{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/appointments", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["email"] != "" {
		t.Fatalf("anonymous request carried a principal: %q", body["email"])
	}
}

func TestMiddlewareValidToken(t *testing.T) {
	repo := &stubUserRepo{byEmail: map[string]*domain.User{
		"jane@example.com": {ID: 7, Email: "jane@example.com", Role: domain.RoleDoctor},
	}}
	app, tokens := newTestApp(t, repo)

	token, _, err := tokens.Issue("jane@example.com", domain.RoleDoctor)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["email"] != "jane@example.com" {
		t.Fatalf("principal email = %q; want jane@example.com", body["email"])
	}
}

func TestMiddlewareInvalidToken(t *testing.T) {
	app, _ := newTestApp(t, &stubUserRepo{})

	req := httptest.NewRequest("GET", "/api/appointments", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("status = %d; want 403", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Fatalf("Access-Control-Allow-Origin = %q; want %q", got, testOrigin)
	}
	if got := resp.Header.Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("Access-Control-Allow-Credentials = %q; want true", got)
	}

	raw, _ := io.ReadAll(resp.Body)
	var body struct {
		Message string `json:"message"`
		Status  string `json:"status"`
		Code    int    `json:"code"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	if body.Message != "Invalid token or insufficient permissions" || body.Status != "error" || body.Code != 403 {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestMiddlewareUnknownSubject(t *testing.T) {
	app, tokens := newTestApp(t, &stubUserRepo{})

	token, _, err := tokens.Issue("ghost@example.com", domain.RolePatient)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest("GET", "/api/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("status = %d; want 403", resp.StatusCode)
	}
}

func TestMiddlewareBypassSkipsBadToken(t *testing.T) {
	app, _ := newTestApp(t, &stubUserRepo{})

	// a broken credential on a bypass path is never inspected
	req := httptest.NewRequest("POST", "/api/auth/register", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}
}

func TestMiddlewareNonBearerHeader(t *testing.T) {
	app, _ := newTestApp(t, &stubUserRepo{})

	req := httptest.NewRequest("GET", "/api/appointments", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d; want 200 (anonymous pass-through)", resp.StatusCode)
	}
}
