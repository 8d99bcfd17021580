package aclsdk

import (
	"context"
	"net/http"
)

// ClaimWithNewAccount creates an account for the invited email and applies
// the invite's grant. No authentication is required; the token is the
// credential.
func (c *SDKClient) ClaimWithNewAccount(ctx context.Context, req ClaimNewAccountRequest) (*ClaimResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/invites/claim/new", "", req)
	if err != nil {
		return nil, err
	}

	var res ClaimResult
	if err := decodeJSON(resp, &res, http.StatusCreated); err != nil {
		return nil, err
	}
	return &res, nil
}
