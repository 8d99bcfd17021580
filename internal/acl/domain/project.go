package domain

import "time"

// Project carries only what ACL rows and the backfill need.
type Project struct {
	ID           string
	Name         string
	CreatedBy    *string
	LegacyTeamID *string
	DeletedAt    *time.Time
	CreatedAt    time.Time
}

func (p *Project) IsDeleted() bool { return p.DeletedAt != nil }
