package http

import (
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
	"github.com/aussiebroadwan/projectacl/internal/acl/service"
)

type RoleResponse struct {
	ProjectID string       `json:"project_id"`
	HasAccess bool         `json:"has_access"`
	Role      *domain.Role `json:"role,omitempty"`
}

type RoleRequest struct {
	Role domain.Role `json:"role"`
}

type ShareResponse struct {
	ProjectID string      `json:"project_id"`
	UserID    string      `json:"user_id"`
	Role      domain.Role `json:"role"`
	GrantedBy *string     `json:"granted_by,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func newShareResponse(s domain.ProjectShare) ShareResponse {
	return ShareResponse{
		ProjectID: s.ProjectID,
		UserID:    s.UserID,
		Role:      s.Role,
		GrantedBy: s.GrantedBy,
		UpdatedAt: s.UpdatedAt,
	}
}

type TransferRequest struct {
	ToUserID string `json:"to_user_id"`
}

type CollaboratorsResponse struct {
	Collaborators []domain.Collaborator `json:"collaborators"`
}

type SharedProjectsResponse struct {
	Projects []domain.SharedProject `json:"projects"`
}

// InviteView is an invite as exposed over the API. The token fingerprint
// never leaves the service.
type InviteView struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	TokenPrefix string       `json:"token_prefix"`
	InvitedBy   string       `json:"invited_by"`
	ProjectID   *string      `json:"project_id,omitempty"`
	Role        *domain.Role `json:"role,omitempty"`
	State       string       `json:"state"`
	ExpiresAt   time.Time    `json:"expires_at"`
	CreatedAt   time.Time    `json:"created_at"`
}

func newInviteView(inv domain.AccountInvite, now time.Time) InviteView {
	return InviteView{
		ID:          inv.ID,
		Email:       inv.Email,
		TokenPrefix: inv.TokenPrefix,
		InvitedBy:   inv.InvitedBy,
		ProjectID:   inv.ProjectID,
		Role:        inv.Role,
		State:       string(inv.State(now)),
		ExpiresAt:   inv.ExpiresAt,
		CreatedAt:   inv.CreatedAt,
	}
}

type InvitesResponse struct {
	Invites []InviteView `json:"invites"`
}

type CreateInviteRequest struct {
	Email     string       `json:"email"`
	ProjectID string       `json:"project_id,omitempty"`
	Role      *domain.Role `json:"role,omitempty"`
}

// CreateInviteResponse is the only response that carries the raw token.
type CreateInviteResponse struct {
	Invite InviteView `json:"invite"`
	Token  string     `json:"token"`
}

type ClaimRequest struct {
	Token string `json:"token"`
}

type ClaimNewAccountRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ClaimResponse struct {
	InviteID  string       `json:"invite_id"`
	UserID    string       `json:"user_id"`
	ProjectID *string      `json:"project_id,omitempty"`
	Role      *domain.Role `json:"role,omitempty"`
}

func newClaimResponse(res service.ClaimResult) ClaimResponse {
	out := ClaimResponse{InviteID: res.Invite.ID, UserID: res.User.ID}
	if res.Share != nil {
		out.ProjectID = &res.Share.ProjectID
		out.Role = &res.Share.Role
	}
	return out
}
