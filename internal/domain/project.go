package domain

import (
	"time"
)

// Project is the canonical, currently-merged record of an academic project.
// Version increases by one on every successful write, whether the write comes
// from the owner directly or from a merged proposal.
type Project struct {
	ID          uint64     `gorm:"primaryKey" json:"id"`
	OwnerID     uint64     `gorm:"index" json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	TechStack   StringList `gorm:"type:jsonb" json:"tech_stack"`
	RepoURL     string     `json:"repo_url"`
	DemoURL     string     `json:"demo_url"`
	Course      string     `json:"course"`
	Semester    string     `json:"semester"`
	Version     uint64     `gorm:"default:1" json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Role is a user's relation to a project, supplied by the membership store.
type Role string

const (
	RoleOwner        Role = "owner"
	RoleCollaborator Role = "collaborator"
	RoleNone         Role = "none"
)

// CollaboratorRole is the membership relation row. It is read-only from this
// service's perspective; rows are written by the identity system.
type CollaboratorRole struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	UserID    uint64    `gorm:"index:idx_member,unique" json:"user_id"`
	ProjectID uint64    `gorm:"index:idx_member,unique" json:"project_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
