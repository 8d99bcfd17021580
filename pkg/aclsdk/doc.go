/*
Package aclsdk is a client for the project ACL service.

SDKClient covers the unauthenticated surface (health checks and claiming an
invite with a new account). A Session wraps an access token issued by the
auth service and covers everything that needs a bearer:

	client := aclsdk.NewSDKClient("https://acl.example.com")
	session := client.NewSession(accessToken)

	role, err := session.GetRole(ctx, "p1")
	if err != nil {
		return err
	}
	if !role.HasAccess {
		// not shared
	}

	issued, err := session.CreateInvite(ctx, aclsdk.CreateInviteRequest{
		Email:     "alice@example.com",
		ProjectID: "p1",
		Role:      aclsdk.RoleCollaborate,
	})

Errors returned by the service are *APIError values carrying the HTTP status
and the service error code:

	if aclsdk.IsCode(err, aclsdk.ErrorCodeLastOwner) {
		// transfer ownership first
	}

Sessions do not refresh tokens. Create a new Session when the token expires.
*/
package aclsdk
