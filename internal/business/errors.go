package business

import "errors"

var (
	ErrNotFound           = errors.New("business not found")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrProfileIncomplete  = errors.New("complete your profile first")
	ErrTrialUsed          = errors.New("pro trial has already been used")
	ErrAlreadyPro         = errors.New("a pro plan is already active")
	ErrGSTINUnverified    = errors.New("GSTIN could not be verified")
	ErrInvalidInput       = errors.New("invalid input")
	ErrFeatureLocked      = errors.New("this feature requires an active pro plan")
)
