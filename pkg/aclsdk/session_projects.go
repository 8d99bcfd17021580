package aclsdk

import (
	"context"
	"net/http"
)

// GetRole reports the caller's effective role on a project. HasAccess is
// false when nothing is shared, including for unknown projects.
func (s *Session) GetRole(ctx context.Context, projectID string) (*RoleResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, projectPath(projectID, "role"), nil)
	if err != nil {
		return nil, err
	}

	var out RoleResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) ListCollaborators(ctx context.Context, projectID string) ([]Collaborator, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, projectPath(projectID, "collaborators"), nil)
	if err != nil {
		return nil, err
	}

	var out collaboratorsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Collaborators, nil
}

// GrantRole creates or replaces userID's share. Requires Owner.
func (s *Session) GrantRole(ctx context.Context, projectID, userID, role string) (*Share, error) {
	return s.writeRole(ctx, http.MethodPut, projectID, userID, role)
}

// ChangeRole updates an existing share. Requires Owner.
func (s *Session) ChangeRole(ctx context.Context, projectID, userID, role string) (*Share, error) {
	return s.writeRole(ctx, http.MethodPatch, projectID, userID, role)
}

func (s *Session) writeRole(ctx context.Context, method, projectID, userID, role string) (*Share, error) {
	resp, err := s.doAuthRequest(ctx, method, projectPath(projectID, "collaborators", userID), roleRequest{Role: role})
	if err != nil {
		return nil, err
	}

	var out Share
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) RevokeShare(ctx context.Context, projectID, userID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, projectPath(projectID, "collaborators", userID), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// TransferOwnership makes toUserID an Owner and demotes the caller to
// Collaborate.
func (s *Session) TransferOwnership(ctx context.Context, projectID, toUserID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, projectPath(projectID, "transfer"), transferRequest{ToUserID: toUserID})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) DeleteProject(ctx context.Context, projectID string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, projectPath(projectID), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) ListProjectInvites(ctx context.Context, projectID string) ([]Invite, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, projectPath(projectID, "invites"), nil)
	if err != nil {
		return nil, err
	}

	var out invitesResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Invites, nil
}

// ListSharedWithMe lists projects shared with the caller.
func (s *Session) ListSharedWithMe(ctx context.Context) ([]SharedProject, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/me/projects", nil)
	if err != nil {
		return nil, err
	}

	var out sharedProjectsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Projects, nil
}
