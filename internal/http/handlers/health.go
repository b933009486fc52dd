package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	payments := "disabled"
	if a.Payments != nil && a.Payments.Enabled() {
		payments = "enabled"
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "payments": payments})
}
