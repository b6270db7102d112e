package model

import "time"

// DateLayout is the wire format of DATE columns.
const DateLayout = "2006-01-02"

// WeddingProfile mirrors a row of `wedding_profiles`. A user has zero or one
// profile and its presence marks onboarding as complete.
type WeddingProfile struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	WeddingDate  *string   `json:"wedding_date"`
	TotalBudget  *float64  `json:"total_budget"`
	GuestCount   *int      `json:"guest_count"`
	City         *string   `json:"city"`
	Partner1Name *string   `json:"partner1_name"`
	Partner2Name *string   `json:"partner2_name"`
	PhotoURL     *string   `json:"photo_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Date parses WeddingDate. ok is false when unset or malformed.
func (p *WeddingProfile) Date() (time.Time, bool) {
	if p == nil || p.WeddingDate == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, *p.WeddingDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Budget returns TotalBudget or zero.
func (p *WeddingProfile) Budget() float64 {
	if p == nil || p.TotalBudget == nil {
		return 0
	}
	return *p.TotalBudget
}

// WeddingProfileInput is the writable subset of a wedding profile. Nil fields
// are left untouched on update.
type WeddingProfileInput struct {
	WeddingDate  *string  `json:"wedding_date,omitempty" validate:"omitnil,datetime=2006-01-02"`
	TotalBudget  *float64 `json:"total_budget,omitempty" validate:"omitnil,gt=0"`
	GuestCount   *int     `json:"guest_count,omitempty" validate:"omitnil,gt=0"`
	City         *string  `json:"city,omitempty"`
	Partner1Name *string  `json:"partner1_name,omitempty"`
	Partner2Name *string  `json:"partner2_name,omitempty"`
	PhotoURL     *string  `json:"photo_url,omitempty"`
}
