package guard

import (
	"context"

	"github.com/iliyamo/miboda/internal/gateway"
)

// ProfileStatus reads user_profiles.is_active. An identity without a profile
// row counts as active.
type ProfileStatus struct {
	Data gateway.Data
}

func (p ProfileStatus) IsActive(ctx context.Context, userID string) (bool, error) {
	type row struct {
		IsActive bool `json:"is_active"`
	}
	r, err := gateway.MaybeSingle[row](ctx, p.Data, gateway.TableUserProfiles,
		gateway.Q().Select("is_active").Eq("user_id", userID))
	if err != nil {
		return false, err
	}
	if r == nil {
		return true, nil
	}
	return r.IsActive, nil
}
