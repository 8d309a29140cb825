package services

import (
	"tournament-ledger/internal/models"
)

// Actor is the authenticated caller, supplied by the identity provider on
// every call. Services never read request state themselves.
type Actor struct {
	UserID uint
	Role   models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func requireUser(a Actor) error {
	if a.UserID == 0 {
		return &ForbiddenError{Message: "authentication required"}
	}
	return nil
}

func requireAdmin(a Actor) error {
	if err := requireUser(a); err != nil {
		return err
	}
	if !a.IsAdmin() {
		return &ForbiddenError{Message: "admin access required"}
	}
	return nil
}
