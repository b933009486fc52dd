package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"iconforge/internal/billing"
	"iconforge/internal/domain"
	"iconforge/internal/generation"
	"iconforge/internal/infra"
)

const (
	maxJSONBody    = 64 << 10
	maxWebhookBody = 256 << 10
)

// Generator runs one icon generation.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationOutcome, error)
}

// Credits reads balances.
type Credits interface {
	Balance(ctx context.Context, accountKey string) (int, error)
}

// Icons is the archive surface served over HTTP.
type Icons interface {
	List(ctx context.Context, accountKey string, limit int) ([]domain.Icon, error)
	Get(ctx context.Context, id, accountKey string) (*domain.Icon, error)
	Delete(ctx context.Context, id, accountKey string) error
	SetFavorite(ctx context.Context, id, accountKey string, favorite bool) error
	Export(ctx context.Context, accountKey string) ([]byte, int, error)
}

// Payments opens checkouts and settles them.
type Payments interface {
	Enabled() bool
	CreateOrder(ctx context.Context, accountKey, packageID string) (*billing.Order, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*billing.WebhookResult, error)
}

type App struct {
	Generator Generator
	Credits   Credits
	Icons     Icons
	Payments  Payments
	Logger    *infra.Logger
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, codeStr, msg string) {
	a.json(w, code, errorBody{Error: errorDetail{Code: codeStr, Message: msg}})
}

// fail maps a service error onto the public error envelope.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		a.error(w, http.StatusBadRequest, "bad_request", verr.Error())
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, http.StatusPaymentRequired, "insufficient_credits", "no credits left, buy a package to continue")
	case errors.Is(err, domain.ErrAllProvidersExhausted):
		a.error(w, http.StatusServiceUnavailable, "high_traffic", generation.HighTrafficMessage)
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrUnknownPackage):
		a.error(w, http.StatusBadRequest, "unknown_package", "unknown credit package")
	case errors.Is(err, domain.ErrInvalidSignature):
		a.error(w, http.StatusBadRequest, "invalid_signature", "webhook signature rejected")
	case errors.Is(err, billing.ErrPaymentsDisabled):
		a.error(w, http.StatusServiceUnavailable, "payments_disabled", "payments are not configured")
	default:
		a.logger().Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("http: request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

func (a *App) logger() *infra.Logger {
	if a.Logger == nil {
		return infra.DiscardLogger()
	}
	return a.Logger
}

func accountKey(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("email"))
}
