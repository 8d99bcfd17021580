package http

import (
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/service"
	"github.com/aussiebroadwan/projectacl/pkg/httpx"
	"github.com/aussiebroadwan/projectacl/pkg/idx"
	"github.com/aussiebroadwan/projectacl/pkg/slogx"
)

// ScopeInviteAccounts lets a caller issue invites that carry no project
// grant. Project invites only need ownership of the project.
const ScopeInviteAccounts = "admin:write"

type InvitesHandler struct {
	Authz   service.Authorizer
	Invites *service.InviteService
}

func (h *InvitesHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := httpx.UserID(ctx)

	var req CreateInviteRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	if req.ProjectID != "" {
		if err := h.Authz.IsOwner(ctx, actor, req.ProjectID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	} else if !hasScope(r, ScopeInviteAccounts) {
		writeServiceError(w, r, service.ErrNotAuthorized)
		return
	}

	issued, err := h.Invites.CreateInvite(ctx, service.CreateInviteParams{
		Email:     req.Email,
		InvitedBy: actor,
		ProjectID: req.ProjectID,
		Role:      req.Role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, CreateInviteResponse{
		Invite: newInviteView(issued.Invite, time.Now()),
		Token:  issued.Token,
	})
}

// HandleRevoke lets the inviter, or an owner of the invite's project,
// revoke a pending invite.
func (h *InvitesHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := httpx.UserID(ctx)
	inviteID := r.PathValue("inviteID")
	if !idx.Valid(inviteID) {
		writeServiceError(w, r, service.ErrNotFound)
		return
	}

	inv, err := h.Invites.GetInvite(ctx, inviteID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if inv.InvitedBy != actor {
		if inv.ProjectID == nil {
			writeServiceError(w, r, service.ErrNotAuthorized)
			return
		}
		if err := h.Authz.IsOwner(ctx, actor, *inv.ProjectID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	revoked, err := h.Invites.RevokeInvite(ctx, inviteID, actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newInviteView(revoked, time.Now()))
}

// HandleClaim claims an invite as the authenticated user.
func (h *InvitesHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ClaimRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	res, err := h.Invites.ClaimInvite(ctx, req.Token, service.Claimant{UserID: httpx.UserID(ctx)})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newClaimResponse(res))
}

// HandleClaimNew claims an invite by creating the account it was issued
// to. This is the only unauthenticated ACL route; the invite is the
// credential.
func (h *InvitesHandler) HandleClaimNew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ClaimNewAccountRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	res, err := h.Invites.ClaimInvite(ctx, req.Token, service.Claimant{
		NewAccount: &service.NewAccount{Email: req.Email, Password: req.Password},
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			slogx.FromContext(ctx).Info("new account claim rejected", "error", err)
		}
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, newClaimResponse(res))
}

func hasScope(r *http.Request, scope string) bool {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	return ok && slices.Contains(claims.Scopes, scope)
}
