package service

import (
	"errors"

	"rentledger/internal/access"
)

var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrForbidden            = errors.New("forbidden")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")

	// ErrValidation is shared with the resolver so handlers map both to 400.
	ErrValidation = access.ErrValidation
)
