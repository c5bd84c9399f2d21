package services

import "github.com/sirdesai22/certify-service/internal/models"

// Policy answers authorization questions about an authenticated user.
type Policy interface {
	IsAdmin(u *models.User) bool
	CanAccessParticipant(u *models.User, p models.Participant) bool
}

// RolePolicy grants administration to users flagged IsAdmin.
type RolePolicy struct{}

func (RolePolicy) IsAdmin(u *models.User) bool { return u != nil && u.IsAdmin }

// CanAccessParticipant lets admins act on anyone and users on their own registrations.
func (p RolePolicy) CanAccessParticipant(u *models.User, part models.Participant) bool {
	if u == nil {
		return false
	}
	if p.IsAdmin(u) {
		return true
	}
	return part.UserID != nil && *part.UserID == u.ID
}
