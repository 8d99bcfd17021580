package aclsdk

import (
	"context"
	"net/http"
	"net/url"
)

// CreateInvite issues an invite. Project invites require Owner on the
// project; account-only invites require the admin:write scope.
func (s *Session) CreateInvite(ctx context.Context, req CreateInviteRequest) (*IssuedInvite, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/invites", req)
	if err != nil {
		return nil, err
	}

	var out IssuedInvite
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) RevokeInvite(ctx context.Context, inviteID string) (*Invite, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/invites/"+url.PathEscape(inviteID)+"/revoke", nil)
	if err != nil {
		return nil, err
	}

	var out Invite
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClaimInvite claims an invite as the session's user. The invite email must
// match the user's.
func (s *Session) ClaimInvite(ctx context.Context, token string) (*ClaimResult, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/invites/claim", claimRequest{Token: token})
	if err != nil {
		return nil, err
	}

	var out ClaimResult
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
