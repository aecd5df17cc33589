package entities

import (
	"strings"
	"time"
)

// Profile is the public face of a user account.
type Profile struct {
	ID          string     `json:"id" db:"id,required"`
	DisplayName string     `json:"displayName" db:",required" validate:"required,max=100"`
	Email       string     `json:"email" db:",required" validate:"required,email"`
	AvatarURL   string     `json:"avatarUrl,omitempty" validate:"omitempty,url"`
	Bio         string     `json:"bio,omitempty" validate:"max=2000"`
	CreatedAt   time.Time  `json:"createdAt" db:",required"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

func (p Profile) GetIdentity() Identity {
	return Identity{ID: p.ID, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt, DeletedAt: p.DeletedAt}
}

func (p Profile) WithIdentity(id Identity) Profile {
	p.ID = id.ID
	p.CreatedAt = id.CreatedAt
	p.UpdatedAt = id.UpdatedAt
	p.DeletedAt = id.DeletedAt
	return p
}

// Normalize trims text fields and lowercases the email.
func (p Profile) Normalize() Profile {
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.AvatarURL = strings.TrimSpace(p.AvatarURL)
	p.Bio = strings.TrimSpace(p.Bio)
	return p
}
