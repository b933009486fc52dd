package handlers

import (
	"io"
	"net/http"

	"iconforge/internal/billing"
)

type packageResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Credits    int    `json:"credits"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
}

func (a *App) CreditBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := a.Credits.Balance(r.Context(), accountKey(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int{"credits": balance})
}

func (a *App) CreditPackages(w http.ResponseWriter, r *http.Request) {
	items := make([]packageResponse, 0, len(billing.Packages))
	for _, p := range billing.Packages {
		items = append(items, packageResponse{
			ID:         p.ID,
			Name:       p.Name,
			Credits:    p.Credits,
			PriceCents: p.PriceCents,
			Currency:   p.Currency,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"packages": items})
}

func (a *App) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email   string `json:"email"`
		Package string `json:"package"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	order, err := a.Payments.CreateOrder(r.Context(), body.Email, body.Package)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{
		"order_id":     order.OrderID,
		"checkout_url": order.CheckoutURL,
		"package":      order.Package.ID,
		"credits":      order.Package.Credits,
	})
}

// PaymentWebhook always answers 2xx once the signature checks out so the
// processor stops retrying replays.
func (a *App) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "webhook payload too large")
		return
	}
	res, err := a.Payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"received":  true,
		"order_id":  res.OrderID,
		"credited":  res.Credited,
		"duplicate": res.Duplicate,
		"ignored":   res.Ignored,
	})
}
