package httpapi

import (
	"net/http"
	"time"

	"iconforge/internal/http/handlers"
	"iconforge/internal/infra"
	"iconforge/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Options struct {
	Logger          *infra.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Route("/v1/icons", func(r chi.Router) {
		r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).Post("/generate", app.GenerateIcon)
		r.Get("/", app.ListIcons)
		r.Get("/export", app.ExportIcons)
		r.Get("/{id}", app.DownloadIcon)
		r.Delete("/{id}", app.DeleteIcon)
		r.Post("/{id}/favorite", app.FavoriteIcon)
	})

	r.Route("/v1/credits", func(r chi.Router) {
		r.Get("/", app.CreditBalance)
		r.Get("/packages", app.CreditPackages)
	})

	r.Route("/v1/payments", func(r chi.Router) {
		r.Post("/orders", app.CreateOrder)
		r.Post("/webhook", app.PaymentWebhook)
	})

	return r
}
