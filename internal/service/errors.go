package service

import "errors"

// Business-rule errors. All of them are rejected before any state is
// mutated; the handler layer maps them to HTTP statuses.
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidRate        = errors.New("rate must be positive")
	ErrInvalidInterest    = errors.New("interest rate cannot be negative")
	ErrInvalidDays        = errors.New("days must be between 1 and 365")
	ErrNegativeBalance    = errors.New("balance cannot be negative")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientStock  = errors.New("insufficient resource stock")
	ErrAlreadySettled     = errors.New("instrument is no longer active")
	ErrActiveInstruments  = errors.New("client has active deposits or credits")
	ErrInvalidCredentials = errors.New("wrong login or password")
)
