package model

import "time"

// Provider mirrors a row of `providers` (a vendor the couple tracks).
// Hired implies Contacted.
type Provider struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	City        *string   `json:"city"`
	PriceApprox *float64  `json:"price_approx"`
	WhatsApp    *string   `json:"whatsapp"`
	Instagram   *string   `json:"instagram"`
	Notes       *string   `json:"notes"`
	Contacted   bool      `json:"contacted"`
	Hired       bool      `json:"hired"`
	IsCustom    bool      `json:"is_custom"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProviderPatch carries a partial provider update. Nil fields are omitted
// from the request body.
type ProviderPatch struct {
	Name        *string  `json:"name,omitempty" validate:"omitnil,notblank"`
	Category    *string  `json:"category,omitempty" validate:"omitnil,category"`
	City        *string  `json:"city,omitempty"`
	PriceApprox *float64 `json:"price_approx,omitempty" validate:"omitnil,gte=0"`
	WhatsApp    *string  `json:"whatsapp,omitempty"`
	Instagram   *string  `json:"instagram,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	Contacted   *bool    `json:"contacted,omitempty"`
	Hired       *bool    `json:"hired,omitempty"`
}
