package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/projectacl/internal/acl/domain"
	"github.com/aussiebroadwan/projectacl/internal/acl/service"
	"github.com/aussiebroadwan/projectacl/pkg/httpx"
)

// ProjectsHandler serves the per-project sharing endpoints. Each handler
// checks the caller's role through Authz before touching the share service.
type ProjectsHandler struct {
	Authz  service.Authorizer
	Shares *service.ShareService
}

func (h *ProjectsHandler) HandleRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := r.PathValue("id")

	role, ok, err := h.Authz.ResolveRole(ctx, httpx.UserID(ctx), projectID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := RoleResponse{ProjectID: projectID, HasAccess: ok}
	if ok {
		resp.Role = &role
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *ProjectsHandler) HandleListCollaborators(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := r.PathValue("id")

	if err := h.Authz.RequireMinRole(ctx, httpx.UserID(ctx), projectID, domain.RoleView); err != nil {
		writeServiceError(w, r, err)
		return
	}

	list, err := h.Shares.ListCollaborators(ctx, projectID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Collaborator{}
	}
	httpx.WriteJSON(w, http.StatusOK, CollaboratorsResponse{Collaborators: list})
}

func (h *ProjectsHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	h.writeRole(w, r, h.Shares.GrantOrUpdateShare)
}

func (h *ProjectsHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	h.writeRole(w, r, h.Shares.ChangeRole)
}

type roleWriter func(ctx context.Context, projectID, userID string, role domain.Role, actor string) (domain.ProjectShare, error)

func (h *ProjectsHandler) writeRole(w http.ResponseWriter, r *http.Request, apply roleWriter) {
	ctx := r.Context()
	actor := httpx.UserID(ctx)
	projectID, userID := r.PathValue("id"), r.PathValue("uid")

	if err := h.Authz.IsOwner(ctx, actor, projectID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req RoleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	share, err := apply(ctx, projectID, userID, req.Role, actor)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newShareResponse(share))
}

func (h *ProjectsHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := httpx.UserID(ctx)
	projectID, userID := r.PathValue("id"), r.PathValue("uid")

	if err := h.Authz.IsOwner(ctx, actor, projectID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.Shares.RevokeShare(ctx, projectID, userID, actor); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectsHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := httpx.UserID(ctx)
	projectID := r.PathValue("id")

	if err := h.Authz.IsOwner(ctx, actor, projectID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req TransferRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	if err := h.Shares.TransferOwnership(ctx, projectID, actor, req.ToUserID, actor); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := httpx.UserID(ctx)
	projectID := r.PathValue("id")

	if err := h.Authz.IsOwner(ctx, actor, projectID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.Shares.DeleteProject(ctx, projectID, actor); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectsHandler) HandleListInvites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := r.PathValue("id")

	if err := h.Authz.IsOwner(ctx, httpx.UserID(ctx), projectID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	invites, err := h.Shares.ListPendingInvites(ctx, projectID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newInvitesResponse(invites))
}

func (h *ProjectsHandler) HandleSharedWithMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.Shares.ListSharedWithMe(ctx, httpx.UserID(ctx))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.SharedProject{}
	}
	httpx.WriteJSON(w, http.StatusOK, SharedProjectsResponse{Projects: list})
}

func newInvitesResponse(invites []domain.AccountInvite) InvitesResponse {
	now := time.Now()
	out := InvitesResponse{Invites: make([]InviteView, 0, len(invites))}
	for _, inv := range invites {
		out.Invites = append(out.Invites, newInviteView(inv, now))
	}
	return out
}
