package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"cargolink/internal/domain"
	"cargolink/internal/email"
	"cargolink/internal/repository"
	"cargolink/internal/service"
)

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]domain.User)}
}

func (s *stubUserRepo) Create(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) && u.UserType == user.UserType {
			return repository.ErrDuplicateEmail
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *stubUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (s *stubUserRepo) GetByEmailAndType(_ context.Context, emailAddr, userType string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, emailAddr) && u.UserType == userType {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (s *stubUserRepo) GetByVerificationToken(_ context.Context, token string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if token != "" && u.EmailVerificationToken == token {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (s *stubUserRepo) GetByResetToken(_ context.Context, token string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if token != "" && u.PasswordResetToken == token {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (s *stubUserRepo) Update(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	s.users[user.ID] = user
	return nil
}

type stubProductRepo struct {
	mu       sync.Mutex
	products map[string]domain.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[string]domain.Product)}
}

func (s *stubProductRepo) Create(_ context.Context, product domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = product
	return nil
}

func (s *stubProductRepo) GetByID(_ context.Context, id string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (s *stubProductRepo) ListByEntrepreneur(_ context.Context, entrepreneurID string) ([]domain.Product, error) {
	return s.filter(func(p domain.Product) bool { return p.EntrepreneurID == entrepreneurID }), nil
}

func (s *stubProductRepo) ListAvailable(_ context.Context) ([]domain.Product, error) {
	return s.filter(func(p domain.Product) bool {
		return p.Status == domain.ProductStatusPending && p.DeliveryPartnerID == ""
	}), nil
}

func (s *stubProductRepo) ListByDeliveryPartner(_ context.Context, partnerID string) ([]domain.Product, error) {
	return s.filter(func(p domain.Product) bool { return p.DeliveryPartnerID == partnerID }), nil
}

func (s *stubProductRepo) Update(_ context.Context, product domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[product.ID]; !ok {
		return pgx.ErrNoRows
	}
	s.products[product.ID] = product
	return nil
}

func (s *stubProductRepo) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.products, id)
	return nil
}

func (s *stubProductRepo) filter(keep func(domain.Product) bool) []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, 0)
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func newTestServer(t *testing.T, limiter service.RateLimiter) (*gin.Engine, *stubUserRepo) {
	t.Helper()
	logger := zap.NewNop()
	users := newStubUserRepo()
	products := newStubProductRepo()

	tokenSvc := service.NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	authSvc := service.NewAuthService(logger, users, tokenSvc, email.NewDisabledSender("test"))
	productSvc := service.NewProductService(logger, products, users)

	if limiter == nil {
		limiter = service.NewMemoryRateLimiter(time.Minute, 1000)
	}
	router := NewRouter(
		logger,
		tokenSvc,
		limiter,
		NewAuthHandler(logger, authSvc, false),
		NewProductHandler(logger, productSvc),
		NewDeliveryHandler(logger, productSvc),
	)
	return router, users
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func registerPayload(emailAddr, userType string) map[string]any {
	return map[string]any{
		"name":     "Maria Perez",
		"email":    emailAddr,
		"password": "secret1",
		"phone":    "9999999999",
		"userType": userType,
	}
}

func registerOverHTTP(t *testing.T, r *gin.Engine, emailAddr, userType string) map[string]any {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", registerPayload(emailAddr, userType))
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decodeBody(t, w)
}

func TestHealthRoute(t *testing.T) {
	r, _ := newTestServer(t, nil)

	w := doJSON(t, r, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	r, _ := newTestServer(t, nil)

	body := registerOverHTTP(t, r, "maria@x.com", domain.UserTypeEntrepreneur)
	if body["accessToken"] == "" || body["refreshToken"] == "" {
		t.Fatalf("expected token pair in response: %v", body)
	}
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object, got %v", body["user"])
	}
	if user["isEmailVerified"] != false {
		t.Fatalf("new user must not be verified: %v", user)
	}
	// Los campos sensibles nunca se serializan.
	for _, field := range []string{"passwordHash", "password_hash", "refreshToken", "emailVerificationToken"} {
		if _, found := user[field]; found {
			t.Fatalf("sensitive field %q leaked in response", field)
		}
	}

	// Mismo email y rol: 400.
	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", registerPayload("maria@x.com", domain.UserTypeEntrepreneur))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["message"] != "User already exists with this email" {
		t.Fatalf("unexpected duplicate message: %v", body["message"])
	}

	// Mismo email con el otro rol: permitido.
	registerOverHTTP(t, r, "maria@x.com", domain.UserTypeDelivery)
}

func TestLoginLockoutOverHTTP(t *testing.T) {
	r, _ := newTestServer(t, nil)
	registerOverHTTP(t, r, "maria@x.com", domain.UserTypeEntrepreneur)

	badLogin := map[string]any{
		"email":    "maria@x.com",
		"password": "wrong-password",
		"userType": domain.UserTypeEntrepreneur,
	}

	for attempt := 1; attempt <= 4; attempt++ {
		w := doJSON(t, r, http.MethodPost, "/api/auth/login", "", badLogin)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d: expected 400, got %d: %s", attempt, w.Code, w.Body.String())
		}
		body := decodeBody(t, w)
		if got := body["attemptsRemaining"]; got != float64(5-attempt) {
			t.Fatalf("attempt %d: expected %d remaining, got %v", attempt, 5-attempt, got)
		}
	}

	// Quinto intento: la cuenta queda bloqueada.
	w := doJSON(t, r, http.MethodPost, "/api/auth/login", "", badLogin)
	if w.Code != http.StatusLocked {
		t.Fatalf("expected 423, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if _, ok := body["lockUntil"]; !ok {
		t.Fatalf("expected lockUntil in locked response: %v", body)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "Account is locked") {
		t.Fatalf("unexpected locked message: %v", body["message"])
	}

	// Con la password correcta sigue bloqueada.
	goodLogin := map[string]any{
		"email":    "maria@x.com",
		"password": "secret1",
		"userType": domain.UserTypeEntrepreneur,
	}
	if w := doJSON(t, r, http.MethodPost, "/api/auth/login", "", goodLogin); w.Code != http.StatusLocked {
		t.Fatalf("correct password during lock: expected 423, got %d", w.Code)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	r, _ := newTestServer(t, nil)
	body := registerOverHTTP(t, r, "maria@x.com", domain.UserTypeEntrepreneur)
	firstRefresh, _ := body["refreshToken"].(string)

	w := doJSON(t, r, http.MethodPost, "/api/auth/refresh-token", "", map[string]any{"refreshToken": firstRefresh})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	refreshed := decodeBody(t, w)
	if refreshed["refreshToken"] == firstRefresh {
		t.Fatalf("refresh must rotate the refresh token")
	}

	// El token anterior quedo superseded.
	w = doJSON(t, r, http.MethodPost, "/api/auth/refresh-token", "", map[string]any{"refreshToken": firstRefresh})
	if w.Code != http.StatusForbidden {
		t.Fatalf("old refresh token: expected 403, got %d: %s", w.Code, w.Body.String())
	}

	// Sin token: 401.
	w = doJSON(t, r, http.MethodPost, "/api/auth/refresh-token", "", map[string]any{})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing refresh token: expected 401, got %d", w.Code)
	}
}

func TestForgotPasswordUniformResponse(t *testing.T) {
	r, _ := newTestServer(t, nil)
	registerOverHTTP(t, r, "maria@x.com", domain.UserTypeEntrepreneur)

	known := doJSON(t, r, http.MethodPost, "/api/auth/forgot-password", "", map[string]any{
		"email":    "maria@x.com",
		"userType": domain.UserTypeEntrepreneur,
	})
	unknown := doJSON(t, r, http.MethodPost, "/api/auth/forgot-password", "", map[string]any{
		"email":    "nadie@x.com",
		"userType": domain.UserTypeEntrepreneur,
	})

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("expected 200/200, got %d/%d", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Fatalf("responses must not reveal account existence: %q vs %q", known.Body.String(), unknown.Body.String())
	}
}

func TestProfileRequiresToken(t *testing.T) {
	r, _ := newTestServer(t, nil)

	w := doJSON(t, r, http.MethodGet, "/api/auth/profile", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/auth/profile", "garbage-token", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with invalid token, got %d", w.Code)
	}
}

func TestProductFlowOverHTTP(t *testing.T) {
	r, _ := newTestServer(t, nil)

	entBody := registerOverHTTP(t, r, "dueno@x.com", domain.UserTypeEntrepreneur)
	entToken, _ := entBody["accessToken"].(string)
	delBody := registerOverHTTP(t, r, "partner@x.com", domain.UserTypeDelivery)
	delToken, _ := delBody["accessToken"].(string)

	w := doJSON(t, r, http.MethodPost, "/api/products", entToken, map[string]any{
		"productName":  "Cajas de vino",
		"quantity":     "12 unidades",
		"weight":       18.5,
		"cost":         2500,
		"fromLocation": "Mendoza",
		"toLocation":   "Buenos Aires",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	product, _ := decodeBody(t, w)["product"].(map[string]any)
	productID, _ := product["id"].(string)
	if productID == "" {
		t.Fatalf("expected product id in response")
	}

	// El rol delivery lo ve como disponible.
	w = doJSON(t, r, http.MethodGet, "/api/deliveries/available", delToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("available: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	available, _ := decodeBody(t, w)["products"].([]any)
	if len(available) != 1 {
		t.Fatalf("expected one available delivery, got %d", len(available))
	}

	// Un emprendedor no puede aceptar envios.
	w = doJSON(t, r, http.MethodPost, "/api/deliveries/accept/"+productID, entToken, map[string]any{"offeredPrice": 900})
	if w.Code != http.StatusForbidden {
		t.Fatalf("entrepreneur accept: expected 403, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/deliveries/accept/"+productID, delToken, map[string]any{"offeredPrice": 900})
	if w.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	accepted, _ := decodeBody(t, w)["product"].(map[string]any)
	if accepted["status"] != domain.ProductStatusAccepted {
		t.Fatalf("expected Accepted status, got %v", accepted["status"])
	}

	// Ya no figura entre los disponibles.
	w = doJSON(t, r, http.MethodGet, "/api/deliveries/available", delToken, nil)
	available, _ = decodeBody(t, w)["products"].([]any)
	if len(available) != 0 {
		t.Fatalf("expected no available deliveries after accept, got %d", len(available))
	}

	// El partner avanza el estado.
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/deliveries/%s/status", productID), delToken, map[string]any{
		"status":          domain.ProductStatusInTransit,
		"currentLocation": "San Luis",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update status: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// El dueno lo ve reflejado.
	w = doJSON(t, r, http.MethodGet, "/api/products/"+productID, entToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get product: expected 200, got %d", w.Code)
	}
	fetched, _ := decodeBody(t, w)["product"].(map[string]any)
	if fetched["status"] != domain.ProductStatusInTransit || fetched["currentLocation"] != "San Luis" {
		t.Fatalf("unexpected product state: %v", fetched)
	}
}

func TestAuthRateLimit(t *testing.T) {
	r, _ := newTestServer(t, service.NewMemoryRateLimiter(time.Minute, 2))

	payload := map[string]any{"email": "x@x.com", "password": "nope", "userType": domain.UserTypeEntrepreneur}
	for i := 0; i < 2; i++ {
		if w := doJSON(t, r, http.MethodPost, "/api/auth/login", "", payload); w.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d rate limited too early", i+1)
		}
	}
	w := doJSON(t, r, http.MethodPost, "/api/auth/login", "", payload)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", w.Code, w.Body.String())
	}
}

func TestNoRoute(t *testing.T) {
	r, _ := newTestServer(t, nil)

	w := doJSON(t, r, http.MethodGet, "/api/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["message"] != "Route not found" {
		t.Fatalf("unexpected body: %v", body)
	}
}
