package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/archivesocial/archive/backend/internal/auth"
	"github.com/archivesocial/archive/backend/internal/dto"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// Register creates an account. When email confirmation is required the
// response carries confirmation_required and no token.
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.Auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Login exchanges email and password for a token
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.Auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmEmail consumes the token from the confirmation link
func (h *Handlers) ConfirmEmail(c *gin.Context) {
	user, err := h.Auth.ConfirmEmail(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "email confirmed",
		"user":    user,
	})
}

// Logout revokes the caller's token
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context(), auth.TokenFromRequest(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangePassword replaces the caller's password
func (h *Handlers) ChangePassword(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.Auth.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword)
	switch {
	case stderrors.Is(err, auth.ErrInvalidCredentials):
		util.RespondValidationError(c, "current_password", "current password is incorrect")
	case stderrors.Is(err, auth.ErrWeakPassword), stderrors.Is(err, auth.ErrPasswordTooLong):
		util.RespondValidationError(c, "new_password", err.Error())
	case err != nil:
		respondError(c, err)
	default:
		c.Status(http.StatusNoContent)
	}
}

// Me returns the caller's profile with account fields
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	profile, err := h.Profiles.Get(c.Request.Context(), user.ID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToMeResponse(user, profile))
}
