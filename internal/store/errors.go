package store

import "errors"

// Workflow errors surfaced to handlers as 4xx responses. Store failures that
// are not one of these are wrapped infrastructure errors.
var (
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNotAuthorized      = errors.New("not authorized for this action")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrAlreadyCompleted   = errors.New("habit already completed in this period")
	ErrInactive           = errors.New("not active")
	ErrNotAssigned        = errors.New("habit not assigned to this user")
	ErrPartnershipExists  = errors.New("a live partnership already exists for this pair")
)
