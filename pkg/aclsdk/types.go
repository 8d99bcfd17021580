package aclsdk

import "time"

// Role names as they appear on the wire.
const (
	RoleView        = "view"
	RoleOperate     = "operate"
	RoleCollaborate = "collaborate"
	RoleOwner       = "owner"
)

// Invite states as reported by the service.
const (
	InviteStatePending = "pending"
	InviteStateClaimed = "claimed"
	InviteStateRevoked = "revoked"
	InviteStateExpired = "expired"
)

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Verifier string `json:"verifier"`
}

type RoleResponse struct {
	ProjectID string `json:"project_id"`
	HasAccess bool   `json:"has_access"`
	Role      string `json:"role,omitempty"`
}

type Share struct {
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	GrantedBy *string   `json:"granted_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Collaborator struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	GrantedBy *string   `json:"granted_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SharedProject struct {
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	SharedAt  time.Time `json:"shared_at"`
}

type Invite struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	TokenPrefix string    `json:"token_prefix"`
	InvitedBy   string    `json:"invited_by"`
	ProjectID   *string   `json:"project_id,omitempty"`
	Role        *string   `json:"role,omitempty"`
	State       string    `json:"state"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateInviteRequest leaves ProjectID and Role empty for an account-only
// invite. Either both are set or neither.
type CreateInviteRequest struct {
	Email     string `json:"email"`
	ProjectID string `json:"project_id,omitempty"`
	Role      string `json:"role,omitempty"`
}

// IssuedInvite carries the raw token. The service never returns it again.
type IssuedInvite struct {
	Invite Invite `json:"invite"`
	Token  string `json:"token"`
}

type ClaimNewAccountRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ClaimResult struct {
	InviteID  string  `json:"invite_id"`
	UserID    string  `json:"user_id"`
	ProjectID *string `json:"project_id,omitempty"`
	Role      *string `json:"role,omitempty"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type transferRequest struct {
	ToUserID string `json:"to_user_id"`
}

type claimRequest struct {
	Token string `json:"token"`
}

type collaboratorsResponse struct {
	Collaborators []Collaborator `json:"collaborators"`
}

type sharedProjectsResponse struct {
	Projects []SharedProject `json:"projects"`
}

type invitesResponse struct {
	Invites []Invite `json:"invites"`
}
