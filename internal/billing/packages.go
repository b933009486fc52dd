package billing

import (
	"strings"

	"iconforge/internal/domain"
)

// Packages are the purchasable credit bundles, in display order.
var Packages = []domain.CreditPackage{
	{ID: "starter", Name: "Starter", Credits: 10, PriceCents: 500, Currency: "usd"},
	{ID: "popular", Name: "Popular", Credits: 50, PriceCents: 2000, Currency: "usd"},
	{ID: "pro", Name: "Pro", Credits: 100, PriceCents: 3500, Currency: "usd"},
}

// LookupPackage finds a package by id, case-insensitively.
func LookupPackage(id string) (domain.CreditPackage, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range Packages {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.CreditPackage{}, domain.ErrUnknownPackage
}
