package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"iconforge/internal/billing"
	"iconforge/internal/domain"
	"iconforge/internal/generation"
	"iconforge/internal/http/handlers"
	"iconforge/internal/http/httpapi"
)

type stubGenerator struct {
	err  error
	last domain.GenerationRequest
	runs int
}

func (s *stubGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationOutcome, error) {
	s.runs++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &domain.GenerationOutcome{
		IconID:      "icon-1",
		Image:       []byte("png-bytes"),
		MIME:        "image/png",
		Explanation: "A flat maple leaf in red and white.",
		Provider:    "qwen:qwen-image-plus",
		Balance:     4,
	}, nil
}

type stubCredits struct{ balances map[string]int }

func (s stubCredits) Balance(ctx context.Context, key string) (int, error) {
	if key == "" {
		return 0, &domain.ValidationError{Field: "email", Reason: "is required"}
	}
	return s.balances[key], nil
}

type stubIcons struct {
	icons    map[string]domain.Icon
	deleted  []string
	favorite map[string]bool
	zip      []byte
}

func (s *stubIcons) List(ctx context.Context, key string, limit int) ([]domain.Icon, error) {
	var out []domain.Icon
	for _, icon := range s.icons {
		if icon.AccountKey == key {
			out = append(out, icon)
		}
	}
	return out, nil
}

func (s *stubIcons) Get(ctx context.Context, id, key string) (*domain.Icon, error) {
	icon, ok := s.icons[id]
	if !ok || icon.AccountKey != key {
		return nil, domain.ErrNotFound
	}
	return &icon, nil
}

func (s *stubIcons) Delete(ctx context.Context, id, key string) error {
	if _, err := s.Get(ctx, id, key); err != nil {
		return err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubIcons) SetFavorite(ctx context.Context, id, key string, favorite bool) error {
	if _, err := s.Get(ctx, id, key); err != nil {
		return err
	}
	s.favorite[id] = favorite
	return nil
}

func (s *stubIcons) Export(ctx context.Context, key string) ([]byte, int, error) {
	icons, _ := s.List(ctx, key, 0)
	if len(icons) == 0 {
		return nil, 0, nil
	}
	return s.zip, len(icons), nil
}

type stubPayments struct {
	enabled   bool
	orderErr  error
	hookErr   error
	signature string
	payload   []byte
}

func (s *stubPayments) Enabled() bool { return s.enabled }

func (s *stubPayments) CreateOrder(ctx context.Context, key, packageID string) (*billing.Order, error) {
	if s.orderErr != nil {
		return nil, s.orderErr
	}
	pkg, err := billing.LookupPackage(packageID)
	if err != nil {
		return nil, err
	}
	return &billing.Order{OrderID: "cs_test_1", CheckoutURL: "https://checkout.test/cs_test_1", Package: pkg}, nil
}

func (s *stubPayments) HandleWebhook(ctx context.Context, payload []byte, signature string) (*billing.WebhookResult, error) {
	s.payload, s.signature = payload, signature
	if s.hookErr != nil {
		return nil, s.hookErr
	}
	return &billing.WebhookResult{OrderID: "cs_test_1", Credited: 10, Balance: 10}, nil
}

type fixture struct {
	gen      *stubGenerator
	icons    *stubIcons
	payments *stubPayments
	router   http.Handler
}

func newFixture(t *testing.T, rateLimit int) *fixture {
	t.Helper()
	f := &fixture{
		gen: &stubGenerator{},
		icons: &stubIcons{
			icons: map[string]domain.Icon{
				"icon-1": {ID: "icon-1", AccountKey: "ada@example.com", Prompt: "canada", MIME: "image/png", Bytes: 3, Data: []byte("png"), CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
			},
			favorite: map[string]bool{},
			zip:      []byte("PK\x03\x04"),
		},
		payments: &stubPayments{enabled: true},
	}
	app := &handlers.App{
		Generator: f.gen,
		Credits:   stubCredits{balances: map[string]int{"ada@example.com": 7}},
		Icons:     f.icons,
		Payments:  f.payments,
	}
	f.router = httpapi.NewRouter(app, httpapi.Options{AllowedOrigins: []string{"*"}, RateLimitPerMin: rateLimit})
	return f
}

func (f *fixture) do(method, target string, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload.Error.Code, payload.Error.Message
}

func TestGenerateIconSuccess(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(http.MethodPost, "/v1/icons/generate", `{"prompt":"canada flag","email":"ada@example.com"}`, map[string]string{
		"X-Request-ID":    "req-42",
		"X-Forwarded-For": "203.0.113.9",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Image    string `json:"image"`
		Message  string `json:"message"`
		IconID   string `json:"icon_id"`
		Credits  int    `json:"credits"`
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(payload.Image)
	if err != nil || string(raw) != "png-bytes" {
		t.Fatalf("image = %q (%v)", raw, err)
	}
	if payload.Credits != 4 || payload.IconID != "icon-1" || payload.Provider != "qwen:qwen-image-plus" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Message == "" {
		t.Fatal("expected explanation message")
	}
	if f.gen.last.RequestID != "req-42" || f.gen.last.ClientIP != "203.0.113.9" {
		t.Fatalf("request metadata not forwarded: %+v", f.gen.last)
	}
}

func TestGenerateIconErrors(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
		wantRuns int
	}{
		{name: "malformed json", body: `{"prompt":`, wantCode: http.StatusBadRequest, wantErr: "bad_request"},
		{name: "blank prompt", body: `{"prompt":"  ","email":"ada@example.com"}`, wantCode: http.StatusBadRequest, wantErr: "bad_request"},
		{name: "missing email", body: `{"prompt":"cat"}`, wantCode: http.StatusBadRequest, wantErr: "bad_request"},
		{name: "no credits", body: `{"prompt":"cat","email":"ada@example.com"}`, err: domain.ErrInsufficientCredits, wantCode: http.StatusPaymentRequired, wantErr: "insufficient_credits", wantRuns: 1},
		{name: "providers exhausted", body: `{"prompt":"cat","email":"ada@example.com"}`, err: fmt.Errorf("chain: %w", domain.ErrAllProvidersExhausted), wantCode: http.StatusServiceUnavailable, wantErr: "high_traffic", wantRuns: 1},
		{name: "ledger down", body: `{"prompt":"cat","email":"ada@example.com"}`, err: errors.New("connection refused"), wantCode: http.StatusInternalServerError, wantErr: "internal", wantRuns: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 0)
			f.gen.err = tc.err
			rec := f.do(http.MethodPost, "/v1/icons/generate", tc.body, nil)
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			code, msg := decodeError(t, rec)
			if code != tc.wantErr {
				t.Fatalf("error code = %q, want %q", code, tc.wantErr)
			}
			if tc.wantErr == "high_traffic" && msg != generation.HighTrafficMessage {
				t.Fatalf("message = %q", msg)
			}
			if f.gen.runs != tc.wantRuns {
				t.Fatalf("generator runs = %d, want %d", f.gen.runs, tc.wantRuns)
			}
		})
	}
}

func TestGenerateIconRateLimited(t *testing.T) {
	f := newFixture(t, 1)
	body := `{"prompt":"cat","email":"ada@example.com"}`
	if rec := f.do(http.MethodPost, "/v1/icons/generate", body, nil); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/v1/icons/generate", body, nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/v1/credits?email=ada@example.com", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("credits should not be limited, got %d", rec.Code)
	}
}

func TestCreditBalance(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(http.MethodGet, "/v1/credits?email=ada@example.com", "", nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"credits":7}` {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(http.MethodGet, "/v1/credits", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing email status = %d", rec.Code)
	}
}

func TestCreditPackages(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(http.MethodGet, "/v1/credits/packages", "", nil)
	var payload struct {
		Packages []struct {
			ID      string `json:"id"`
			Credits int    `json:"credits"`
		} `json:"packages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Packages) != len(billing.Packages) || payload.Packages[0].ID != "starter" {
		t.Fatalf("packages = %+v", payload.Packages)
	}
}

func TestIconRoutes(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(http.MethodGet, "/v1/icons?email=ada@example.com", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":"icon-1"`) {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(http.MethodGet, "/v1/icons?email=ada@example.com&limit=abc", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}

	rec = f.do(http.MethodGet, "/v1/icons/icon-1?email=ada@example.com", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" || rec.Body.String() != "png" {
		t.Fatalf("download: %d %q %q", rec.Code, rec.Header().Get("Content-Type"), rec.Body.String())
	}
	if rec := f.do(http.MethodGet, "/v1/icons/icon-1?email=eve@example.com", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign download status = %d", rec.Code)
	}

	if rec := f.do(http.MethodPost, "/v1/icons/icon-1/favorite?email=ada@example.com", `{}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("favorite without flag status = %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/v1/icons/icon-1/favorite?email=ada@example.com", `{"favorite":true}`, nil); rec.Code != http.StatusOK {
		t.Fatalf("favorite status = %d", rec.Code)
	}
	if !f.icons.favorite["icon-1"] {
		t.Fatal("favorite not stored")
	}

	rec = f.do(http.MethodGet, "/v1/icons/export?email=ada@example.com", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/zip" || rec.Header().Get("X-Icon-Count") != "1" {
		t.Fatalf("export: %d %v", rec.Code, rec.Header())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("export body %q", rec.Body.Bytes())
	}
	if rec := f.do(http.MethodGet, "/v1/icons/export?email=eve@example.com", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("empty export status = %d", rec.Code)
	}

	if rec := f.do(http.MethodDelete, "/v1/icons/icon-1?email=ada@example.com", "", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if len(f.icons.deleted) != 1 || f.icons.deleted[0] != "icon-1" {
		t.Fatalf("deleted = %v", f.icons.deleted)
	}
}

func TestCreateOrder(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		orderErr error
		want     int
		wantErr  string
	}{
		{name: "ok", body: `{"email":"ada@example.com","package":"popular"}`, want: http.StatusCreated},
		{name: "unknown package", body: `{"email":"ada@example.com","package":"mega"}`, want: http.StatusBadRequest, wantErr: "unknown_package"},
		{name: "disabled", body: `{"email":"ada@example.com","package":"pro"}`, orderErr: billing.ErrPaymentsDisabled, want: http.StatusServiceUnavailable, wantErr: "payments_disabled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 0)
			f.payments.orderErr = tc.orderErr
			rec := f.do(http.MethodPost, "/v1/payments/orders", tc.body, nil)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
			if tc.wantErr != "" {
				if code, _ := decodeError(t, rec); code != tc.wantErr {
					t.Fatalf("code = %q, want %q", code, tc.wantErr)
				}
				return
			}
			if !strings.Contains(rec.Body.String(), `"checkout_url":"https://checkout.test/cs_test_1"`) {
				t.Fatalf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestPaymentWebhook(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(http.MethodPost, "/v1/payments/webhook", `{"id":"evt_1"}`, map[string]string{"Stripe-Signature": "t=1,v1=abc"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.payments.signature != "t=1,v1=abc" || string(f.payments.payload) != `{"id":"evt_1"}` {
		t.Fatalf("webhook input not forwarded: %q %q", f.payments.signature, f.payments.payload)
	}

	f.payments.hookErr = fmt.Errorf("billing: %w", domain.ErrInvalidSignature)
	rec = f.do(http.MethodPost, "/v1/payments/webhook", `{}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad signature status = %d", rec.Code)
	}
}

func TestHealthAndDocs(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(http.MethodGet, "/v1/healthz", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"payments":"enabled"`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(http.MethodGet, "/v1/openapi.json", "", nil)
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("openapi document is not json: %v", err)
	}
	if _, ok := doc["paths"].(map[string]any)["/v1/icons/generate"]; !ok {
		t.Fatal("openapi document missing generate route")
	}
}
