package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/archivesocial/archive/backend/internal/auth"
	"github.com/archivesocial/archive/backend/internal/errors"
	"github.com/archivesocial/archive/backend/internal/social"
	"github.com/archivesocial/archive/backend/internal/storage"
	"github.com/archivesocial/archive/backend/internal/stories"
	"github.com/archivesocial/archive/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// respondError maps domain errors to API errors. Anything unrecognised is
// a 500 and is attached to the gin context for logging and tracing.
func respondError(c *gin.Context, err error) {
	util.RespondWithAPIError(c, toAPIError(c, err))
}

func toAPIError(c *gin.Context, err error) *errors.APIError {
	var fieldErr *social.FieldError
	if stderrors.As(err, &fieldErr) {
		return errors.ValidationError(fieldErr.Field, fieldErr.Message)
	}
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.PayloadTooLarge("request body too large")
	}

	switch {
	case stderrors.Is(err, social.ErrPostNotFound):
		return errors.NotFound("post")
	case stderrors.Is(err, social.ErrCommentNotFound):
		return errors.NotFound("comment")
	case stderrors.Is(err, social.ErrUserNotFound), stderrors.Is(err, auth.ErrUserNotFound):
		return errors.NotFound("user")
	case stderrors.Is(err, social.ErrNotificationNotFound):
		return errors.NotFound("notification")
	case stderrors.Is(err, stories.ErrStoryNotFound):
		return errors.NotFound("story")

	case stderrors.Is(err, social.ErrNotOwner), stderrors.Is(err, stories.ErrNotOwner):
		return errors.Forbidden("only the owner can do that")
	case stderrors.Is(err, social.ErrNewsImmutable):
		return errors.BadRequest(err.Error())
	case stderrors.Is(err, social.ErrFollowSelf):
		return errors.BadRequest(err.Error())

	case stderrors.Is(err, social.ErrEmptyPost):
		return errors.ValidationError("content", err.Error())
	case stderrors.Is(err, social.ErrEmptyComment):
		return errors.ValidationError("content", err.Error())
	case stderrors.Is(err, stories.ErrNoImage):
		return errors.ValidationError("image", err.Error())
	case stderrors.Is(err, storage.ErrUnsupportedImage):
		return errors.ValidationError("image", "image must be jpeg, png, gif or webp")
	case stderrors.Is(err, storage.ErrImageTooLarge):
		return errors.PayloadTooLarge(err.Error())

	case stderrors.Is(err, social.ErrUsernameTaken):
		apiErr := errors.Conflict("username")
		apiErr.Field = "username"
		return apiErr
	case stderrors.Is(err, auth.ErrUsernameExists):
		apiErr := errors.AlreadyExists("username")
		apiErr.Field = "username"
		return apiErr
	case stderrors.Is(err, auth.ErrUserExists):
		apiErr := errors.AlreadyExists("account")
		apiErr.Field = "email"
		return apiErr

	case stderrors.Is(err, auth.ErrInvalidEmail):
		return errors.ValidationError("email", err.Error())
	case stderrors.Is(err, auth.ErrWeakPassword), stderrors.Is(err, auth.ErrPasswordTooLong):
		return errors.ValidationError("password", err.Error())
	case stderrors.Is(err, auth.ErrInvalidUsername):
		return errors.ValidationError("username", err.Error())
	case stderrors.Is(err, auth.ErrInvalidCredentials):
		return errors.Unauthorized("invalid email or password")
	case stderrors.Is(err, auth.ErrInvalidToken), stderrors.Is(err, auth.ErrTokenRevoked):
		return errors.Unauthorized(err.Error())
	case stderrors.Is(err, auth.ErrEmailNotConfirmed):
		return errors.Forbidden("confirm your email before signing in")
	}

	_ = c.Error(err)
	return errors.InternalError("something went wrong")
}

// bindJSON binds the body and reports binding failures as 422s
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			respondError(c, err)
			return false
		}
		util.RespondWithAPIError(c, errors.ValidationError("", "invalid request body").WithDetails(err.Error()))
		return false
	}
	return true
}
