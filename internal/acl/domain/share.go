package domain

import "time"

// ProjectShare is one user's access to one project. There is at most one
// row per (ProjectID, UserID).
type ProjectShare struct {
	ID        string
	ProjectID string
	UserID    string
	Role      Role
	GrantedBy *string // nil for system grants (backfill)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Collaborator is the management-UI projection of a share joined with the
// user's email.
type Collaborator struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	GrantedBy *string   `json:"granted_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SharedProject is the "shared with me" projection for a single user.
type SharedProject struct {
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	SharedAt  time.Time `json:"shared_at"`
}
