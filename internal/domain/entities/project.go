package entities

import (
	"slices"
	"strings"
	"time"
)

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "ACTIVE"
	ProjectStatusArchived ProjectStatus = "ARCHIVED"
)

// IsValid checks if the status is one of the known values.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusArchived:
		return true
	default:
		return false
	}
}

// Project groups work owned by a single profile.
type Project struct {
	ID          string        `json:"id" db:"id,required"`
	Name        string        `json:"name" db:",required" validate:"required,max=200"`
	Description string        `json:"description,omitempty" validate:"max=4000"`
	OwnerID     string        `json:"ownerId,omitempty" validate:"omitempty,uuid"`
	Status      ProjectStatus `json:"status" validate:"omitempty,oneof=ACTIVE ARCHIVED"`
	Tags        []string      `json:"tags,omitempty" validate:"max=20,dive,required,max=50"`
	CreatedAt   time.Time     `json:"createdAt" db:",required"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	DeletedAt   *time.Time    `json:"deletedAt,omitempty"`
}

func (p Project) GetIdentity() Identity {
	return Identity{ID: p.ID, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt, DeletedAt: p.DeletedAt}
}

func (p Project) WithIdentity(id Identity) Project {
	p.ID = id.ID
	p.CreatedAt = id.CreatedAt
	p.UpdatedAt = id.UpdatedAt
	p.DeletedAt = id.DeletedAt
	return p
}

// Normalize trims text fields, drops blank and duplicate tags and
// defaults the status to ACTIVE.
func (p Project) Normalize() Project {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.OwnerID = strings.ToLower(strings.TrimSpace(p.OwnerID))
	if p.Status == "" {
		p.Status = ProjectStatusActive
	}

	var tags []string
	for _, tag := range p.Tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	p.Tags = tags

	return p
}

// IsArchived reports whether the project no longer accepts work.
func (p Project) IsArchived() bool {
	return p.Status == ProjectStatusArchived
}
