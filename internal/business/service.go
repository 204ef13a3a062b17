package business

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/invisifeed/invisifeed/internal/gstin"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=business
type Repository interface {
	CreateBusiness(ctx context.Context, b *Business) error
	GetBusiness(ctx context.Context, id uuid.UUID) (*Business, error)
	GetByLogin(ctx context.Context, login string) (*Business, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateProfile(ctx context.Context, b *Business) error
	UpdateGSTIN(ctx context.Context, id uuid.UUID, g GSTIN) error
	UpdatePlan(ctx context.Context, id uuid.UUID, plan Plan, trialUsed bool) error
}

type GSTINVerifier interface {
	Verify(ctx context.Context, number string) (*gstin.Result, error)
}

type Service struct {
	repo     Repository
	verifier GSTINVerifier
	now      func() time.Time
}

func NewService(repo Repository, verifier GSTINVerifier) *Service {
	return &Service{repo: repo, verifier: verifier, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

var usernameRE = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

const minPasswordLength = 8

type RegisterParams struct {
	Username     string
	Email        string
	Password     string
	BusinessName string
}

// NormalizeUsername lower-cases and trims a username as typed.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*Business, error) {
	username := NormalizeUsername(params.Username)
	if !usernameRE.MatchString(username) {
		return nil, fmt.Errorf("%w: username must be 3-30 lowercase letters, digits or underscores", ErrInvalidInput)
	}

	if len(params.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	b := &Business{
		Username:      username,
		Email:         strings.ToLower(strings.TrimSpace(params.Email)),
		PasswordHash:  string(hash),
		BusinessName:  strings.TrimSpace(params.BusinessName),
		Plan:          Plan{Name: PlanFree},
		ProfileStatus: ProfileIncomplete,
	}

	if err := s.repo.CreateBusiness(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *Service) Authenticate(ctx context.Context, login, password string) (*Business, error) {
	b, err := s.repo.GetByLogin(ctx, strings.ToLower(strings.TrimSpace(login)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(b.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return b, nil
}

// UsernameAvailable reports whether a normalized username is free. Malformed
// usernames are reported as unavailable.
func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = NormalizeUsername(username)
	if !usernameRE.MatchString(username) {
		return false, nil
	}

	exists, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return false, err
	}

	return !exists, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Business, error) {
	return s.repo.GetBusiness(ctx, id)
}

// ProfileUpdate carries the fields a profile form changed; nil fields are left alone.
type ProfileUpdate struct {
	BusinessName *string
	PhoneNumber  *string
	Country      *string
	State        *string
	City         *string
	LocalAddress *string
	Pincode      *string
}

// Apply merges the update into b. Country and state go through the address
// cascade so a changed country never keeps the previous state or city.
func (u ProfileUpdate) Apply(b *Business) {
	if u.BusinessName != nil {
		b.BusinessName = strings.TrimSpace(*u.BusinessName)
	}

	if u.PhoneNumber != nil {
		b.PhoneNumber = strings.TrimSpace(*u.PhoneNumber)
	}

	if u.Country != nil {
		b.Address = b.Address.WithCountry(*u.Country)
	}

	if u.State != nil {
		b.Address = b.Address.WithState(*u.State)
	}

	if u.City != nil {
		b.Address = b.Address.WithCity(*u.City)
	}

	if u.LocalAddress != nil {
		b.Address.LocalAddress = *u.LocalAddress
	}

	if u.Pincode != nil {
		b.Address.Pincode = strings.TrimSpace(*u.Pincode)
	}
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*Business, error) {
	b, err := s.repo.GetBusiness(ctx, id)
	if err != nil {
		return nil, err
	}

	update.Apply(b)

	switch {
	case b.ProfileComplete():
		b.ProfileStatus = ProfileCompleted
	case b.ProfileStatus == ProfileCompleted:
		b.ProfileStatus = ProfileIncomplete
	}

	if err := s.repo.UpdateProfile(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

// SkipProfile defers onboarding. Invoice creation still requires a completed profile.
func (s *Service) SkipProfile(ctx context.Context, id uuid.UUID) (*Business, error) {
	b, err := s.repo.GetBusiness(ctx, id)
	if err != nil {
		return nil, err
	}

	if b.ProfileStatus != ProfileIncomplete {
		return b, nil
	}

	b.ProfileStatus = ProfileSkipped
	if err := s.repo.UpdateProfile(ctx, b); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *Service) VerifyGSTIN(ctx context.Context, number string) (*gstin.Result, error) {
	number = gstin.Normalize(number)
	if err := gstin.ValidateFormat(number); err != nil {
		return &gstin.Result{Valid: false, Message: err.Error()}, nil
	}

	res, err := s.verifier.Verify(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("verifying gstin: %w", err)
	}

	return res, nil
}

// SaveGSTIN re-verifies the number and stores it with the verified trade name.
func (s *Service) SaveGSTIN(ctx context.Context, id uuid.UUID, number string) (*Business, error) {
	res, err := s.VerifyGSTIN(ctx, number)
	if err != nil {
		return nil, err
	}

	if !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrGSTINUnverified, res.Message)
	}

	g := GSTIN{Number: gstin.Normalize(number), HolderName: res.TradeName, Verified: true}
	if err := s.repo.UpdateGSTIN(ctx, id, g); err != nil {
		return nil, err
	}

	return s.repo.GetBusiness(ctx, id)
}

func (s *Service) StartProTrial(ctx context.Context, id uuid.UUID) (*Business, error) {
	b, err := s.repo.GetBusiness(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()

	if b.ProTrialUsed {
		return nil, ErrTrialUsed
	}

	if b.Plan.IsPro(now) {
		return nil, ErrAlreadyPro
	}

	end := now.Add(TrialDuration)
	plan := Plan{Name: PlanProTrial, StartDate: &now, EndDate: &end}

	if err := s.repo.UpdatePlan(ctx, id, plan, true); err != nil {
		return nil, err
	}

	b.Plan = plan
	b.ProTrialUsed = true

	return b, nil
}

// SetPlan assigns a plan directly; billing happens outside this service.
func (s *Service) SetPlan(ctx context.Context, id uuid.UUID, name PlanName, end time.Time) (*Business, error) {
	b, err := s.repo.GetBusiness(ctx, id)
	if err != nil {
		return nil, err
	}

	switch name {
	case PlanFree, PlanPro, PlanProTrial:
	default:
		return nil, fmt.Errorf("%w: unknown plan %q", ErrInvalidInput, name)
	}

	now := s.now()
	plan := Plan{Name: name, StartDate: &now}

	if name != PlanFree {
		plan.EndDate = &end
	}

	if err := s.repo.UpdatePlan(ctx, id, plan, b.ProTrialUsed); err != nil {
		return nil, err
	}

	b.Plan = plan

	return b, nil
}
