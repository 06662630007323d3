package services

import (
	"bakery/internal/errs"
	"bakery/internal/models"
)

// Requester is the authenticated identity on whose behalf an operation runs.
// Handlers build it from the verified token; services never look it up themselves.
type Requester struct {
	ID   string
	Role models.Role
	Name string
}

// IsBaker reports whether the requester acts as a vendor.
func (r Requester) IsBaker() bool { return r.Role == models.RoleBaker }

func (r Requester) authenticated() error {
	if r.ID == "" {
		return errs.New(errs.ErrUnauthorized, "authentication required")
	}
	return nil
}

func (r Requester) requireBaker() error {
	if err := r.authenticated(); err != nil {
		return err
	}
	if !r.IsBaker() {
		return errs.Forbidden("access denied, bakers only")
	}
	return nil
}
