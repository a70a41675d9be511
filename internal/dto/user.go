// Package dto holds request and response bodies shared by the HTTP handlers
// and the CLI client.
package dto

import (
	"github.com/archivesocial/archive/backend/internal/models"
)

// MeResponse is the signed-in user's own view: the public profile plus
// private account fields
type MeResponse struct {
	models.Profile
	Email          string `json:"email"`
	EmailConfirmed bool   `json:"email_confirmed"`
}

// ToMeResponse merges the decorated profile with the account fields of user
func ToMeResponse(user *models.User, profile *models.Profile) *MeResponse {
	if profile == nil {
		p := user.ToProfile()
		profile = &p
	}
	return &MeResponse{
		Profile:        *profile,
		Email:          user.Email,
		EmailConfirmed: user.IsEmailConfirmed(),
	}
}

// ChangePasswordRequest is the body of PUT /auth/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// CreateCommentRequest is the body of POST /posts/:id/comments
type CreateCommentRequest struct {
	Content  string  `json:"content" binding:"required"`
	ParentID *string `json:"parent_id"`
}
