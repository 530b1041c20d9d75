package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/rolodexapp/rolodex-server/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me",
		Summary:     "Get current user",
		Description: "Returns the authenticated user's profile",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateUsername",
		Method:      http.MethodPut,
		Path:        "/api/v1/users/me/username",
		Summary:     "Change username",
		Description: "Updates the authenticated user's username. Fails with a conflict if the name is taken.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateUsername)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePassword",
		Method:      http.MethodPut,
		Path:        "/api/v1/users/me/password",
		Summary:     "Change password",
		Description: "Updates the authenticated user's password after verifying the old one",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdatePassword)
}

// === DTOs ===

// UserOutput wraps a user profile for Huma.
type UserOutput struct {
	Body UserResponse
}

// UpdateUsernameRequest is the request body for a username change.
type UpdateUsernameRequest struct {
	Username string `json:"username" doc:"New username"`
}

// UpdateUsernameInput wraps the username change request for Huma.
type UpdateUsernameInput struct {
	Body UpdateUsernameRequest
}

// UpdatePasswordRequest is the request body for a password change.
type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword" doc:"Current password"`
	NewPassword string `json:"newPassword" doc:"New password"`
}

// UpdatePasswordInput wraps the password change request for Huma.
type UpdatePasswordInput struct {
	Body UpdatePasswordRequest
}

// === Handlers ===

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleUpdateUsername(ctx context.Context, input *UpdateUsernameInput) (*UserOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := s.services.User.UpdateUsername(ctx, user.ID, service.UpdateUsernameRequest{
		Username: input.Body.Username,
	})
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(updated)}, nil
}

func (s *Server) handleUpdatePassword(ctx context.Context, input *UpdatePasswordInput) (*MessageOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	err = s.services.User.UpdatePassword(ctx, user.ID, service.UpdatePasswordRequest{
		OldPassword: input.Body.OldPassword,
		NewPassword: input.Body.NewPassword,
	})
	if err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Password updated"}}, nil
}
