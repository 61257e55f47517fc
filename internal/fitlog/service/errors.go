package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account inactive")
	ErrForbidden          = errors.New("forbidden")
	ErrUnknownCategory    = errors.New("unknown workout category")
	ErrSessionInvalid     = errors.New("session invalid")
)

// User-facing messages for the sentinels above.
const (
	MsgInvalidCredentials = "Please enter a correct username and password."
	MsgAccountInactive    = "This account is inactive. Please contact an admin to reactivate it."
)
