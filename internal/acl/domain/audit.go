package domain

import "time"

// AuditAction names an audited ACL mutation.
type AuditAction string

const (
	AuditInviteCreated        AuditAction = "invite.created"
	AuditInviteRevoked        AuditAction = "invite.revoked"
	AuditInviteClaimed        AuditAction = "invite.claimed"
	AuditShareGranted         AuditAction = "share.granted"
	AuditShareChanged         AuditAction = "share.changed"
	AuditShareRevoked         AuditAction = "share.revoked"
	AuditOwnershipTransferred AuditAction = "project.ownership_transferred"
	AuditProjectDeleted       AuditAction = "project.deleted"
)

// AuditEvent is appended in the same transaction as the mutation it
// describes.
type AuditEvent struct {
	ID            string
	Action        AuditAction
	ActorID       *string // nil for system actions
	ProjectID     *string
	SubjectUserID *string
	InviteID      *string
	Detail        map[string]string
	CreatedAt     time.Time
}
