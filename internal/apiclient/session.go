package apiclient

import (
	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/http/account"
	"github.com/invisifeed/invisifeed/internal/http/profile"
	"github.com/invisifeed/invisifeed/internal/session"
)

// Snapshot builds the client session from a login or register response.
func Snapshot(s *account.SessionResponse) session.Snapshot {
	snap := ProfileSnapshot(s.Profile)
	snap.Token = s.Token
	snap.ExpiresAt = s.ExpiresAt

	return snap
}

// ProfileSnapshot maps a profile response; the token is left empty so a
// session.Refreshed update keeps the current one.
func ProfileSnapshot(p profile.Response) session.Snapshot {
	return session.Snapshot{
		BusinessID:   p.ID,
		Username:     p.Username,
		Email:        p.Email,
		BusinessName: p.BusinessName,
		PhoneNumber:  p.PhoneNumber,
		Address: business.Address{
			Country:      p.Address.Country,
			State:        p.Address.State,
			City:         p.Address.City,
			LocalAddress: p.Address.LocalAddress,
			Pincode:      p.Address.Pincode,
		},
		GSTIN: business.GSTIN{
			Number:     p.GSTIN.Number,
			HolderName: p.GSTIN.HolderName,
			Verified:   p.GSTIN.Verified,
		},
		Plan: business.Plan{
			Name:      p.Plan.Name,
			StartDate: p.Plan.StartDate,
			EndDate:   p.Plan.EndDate,
		},
		ProfileStatus:    p.ProfileStatus,
		ProTrialUsed:     p.ProTrialUsed,
		DailyUploadCount: p.Usage.Used,
		DailyLimit:       p.Usage.Limit,
	}
}
