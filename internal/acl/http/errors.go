package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/projectacl/internal/acl/service"
	"github.com/aussiebroadwan/projectacl/pkg/httpx"
	"github.com/aussiebroadwan/projectacl/pkg/slogx"
)

type errorMapping struct {
	err    error
	status int
	code   string
	desc   string
}

var errorTable = []errorMapping{
	{service.ErrInvalidRequest, http.StatusBadRequest, "invalid_request", "The request is malformed"},
	{service.ErrNotAuthorized, http.StatusForbidden, "forbidden", "Insufficient access to this project"},
	{service.ErrEmailMismatch, http.StatusForbidden, "email_mismatch", "Invite was issued to a different email address"},
	{service.ErrNotFound, http.StatusNotFound, "not_found", "Resource not found"},
	{service.ErrLastOwnerViolation, http.StatusConflict, "last_owner", "A project must keep at least one owner"},
	{service.ErrInviteAlreadyClaimed, http.StatusConflict, "invite_already_claimed", "Invite has already been claimed"},
	{service.ErrAlreadyTerminal, http.StatusConflict, "invite_not_pending", "Invite is no longer pending"},
	{service.ErrInviteExpired, http.StatusGone, "invite_expired", "Invite has expired"},
	{service.ErrInviteRevoked, http.StatusGone, "invite_revoked", "Invite has been revoked"},
	{service.ErrTransientStoreConflict, http.StatusServiceUnavailable, "temporarily_unavailable", "Please retry shortly"},
}

// writeServiceError maps a service sentinel to its status and error code.
// Anything unrecognised is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			if m.status == http.StatusServiceUnavailable {
				w.Header().Set("Retry-After", "1")
			}
			httpx.WriteError(w, m.status, m.code, m.desc)
			return
		}
	}

	slogx.FromContext(r.Context()).Error("request failed", "error", err)
	httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal error")
}

func writeBadBody(w http.ResponseWriter, err error) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
}
