// internal/domain/errors.go
package domain

import "errors"

var (
	// General errors
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Membership-related errors
	ErrMembershipNotFound  = errors.New("membership not found")
	ErrMembershipInactive  = errors.New("membership is inactive")
	ErrDuplicateMembership = errors.New("user already belongs to this organization")

	// Organization-related errors
	ErrOrganizationNotFound = errors.New("organization not found")

	// Profile-related errors
	ErrProfileNotFound = errors.New("profile not found")

	// Invitation-related errors
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationNotPending = errors.New("invitation is not pending")
	ErrInvitationProcessing = errors.New("invitation processing failed")
	ErrRoleNotInvitable     = errors.New("role cannot receive an invitation")
	ErrBulkInviteFailed     = errors.New("all bulk invite entries failed")
	ErrInvalidRole          = errors.New("invalid role")

	// Authorization-related errors
	ErrSelfActionNotPermitted = errors.New("cannot perform this action on your own account")
	ErrOwnershipRequired      = errors.New("resource is owned by another user")
)
