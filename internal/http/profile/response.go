package profile

import (
	"time"

	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/invoice"
)

type Address struct {
	Country      string `json:"country"`
	State        string `json:"state"`
	City         string `json:"city"`
	LocalAddress string `json:"local_address"`
	Pincode      string `json:"pincode"`
}

type GSTIN struct {
	Number     string `json:"number,omitempty"`
	HolderName string `json:"holder_name,omitempty"`
	Verified   bool   `json:"verified"`
}

type Plan struct {
	Name      business.PlanName `json:"name"`
	StartDate *time.Time        `json:"start_date,omitempty"`
	EndDate   *time.Time        `json:"end_date,omitempty"`
	IsPro     bool              `json:"is_pro"`
}

type Usage struct {
	Used            int   `json:"used"`
	Limit           int   `json:"limit"`
	Remaining       int   `json:"remaining"`
	ResetsInSeconds int64 `json:"resets_in_seconds"`
}

// Response is the signed-in business as clients see it.
type Response struct {
	ID            uuid.UUID              `json:"id"`
	Username      string                 `json:"username"`
	Email         string                 `json:"email"`
	BusinessName  string                 `json:"business_name"`
	PhoneNumber   string                 `json:"phone_number"`
	Address       Address                `json:"address"`
	GSTIN         GSTIN                  `json:"gstin"`
	Plan          Plan                   `json:"plan"`
	ProfileStatus business.ProfileStatus `json:"profile_status"`
	ProTrialUsed  bool                   `json:"pro_trial_used"`
	Features      business.Features      `json:"features"`
	Usage         Usage                  `json:"usage"`
}

func UsageFrom(q invoice.Quota, now time.Time) Usage {
	return Usage{
		Used:            q.Used,
		Limit:           q.Limit,
		Remaining:       q.Remaining(),
		ResetsInSeconds: int64(q.ResetsIn(now).Seconds()),
	}
}

func ToResponse(b *business.Business, limits business.Limits, now time.Time) Response {
	quota := invoice.NewQuota(b.DailyUploadCount, b.UploadWindowStart, limits.DailyLimit(b.Plan, now), limits.Window, now)

	return Response{
		ID:           b.ID,
		Username:     b.Username,
		Email:        b.Email,
		BusinessName: b.BusinessName,
		PhoneNumber:  b.PhoneNumber,
		Address: Address{
			Country:      b.Address.Country,
			State:        b.Address.State,
			City:         b.Address.City,
			LocalAddress: b.Address.LocalAddress,
			Pincode:      b.Address.Pincode,
		},
		GSTIN: GSTIN{
			Number:     b.GSTIN.Number,
			HolderName: b.GSTIN.HolderName,
			Verified:   b.GSTIN.Verified,
		},
		Plan: Plan{
			Name:      b.Plan.Name,
			StartDate: b.Plan.StartDate,
			EndDate:   b.Plan.EndDate,
			IsPro:     b.Plan.IsPro(now),
		},
		ProfileStatus: b.ProfileStatus,
		ProTrialUsed:  b.ProTrialUsed,
		Features:      business.FeaturesFor(b.Plan, now),
		Usage:         UsageFrom(quota, now),
	}
}
