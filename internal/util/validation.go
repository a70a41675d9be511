package util

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/archivesocial/archive/backend/internal/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,30}$`)

// IsValidUsername reports whether a username has 3..30 characters of [a-zA-Z0-9_.]
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// IsValidWebsite accepts an empty string or an absolute http(s) URL
func IsValidWebsite(raw string) bool {
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// ValidateUsername is the validator/v10 form of IsValidUsername
func ValidateUsername(fl validator.FieldLevel) bool {
	return IsValidUsername(fl.Field().String())
}

// ValidateBadge only accepts badges a user may pick for themselves
func ValidateBadge(fl validator.FieldLevel) bool {
	_, ok := models.UserSelectableBadges[fl.Field().String()]
	return ok
}

// ValidateBorder accepts any known avatar border variant
func ValidateBorder(fl validator.FieldLevel) bool {
	_, ok := models.BorderVariants[fl.Field().String()]
	return ok
}

// ValidateWebsite is the validator/v10 form of IsValidWebsite
func ValidateWebsite(fl validator.FieldLevel) bool {
	return IsValidWebsite(fl.Field().String())
}

// RegisterValidators installs the custom binding tags on gin's validator engine
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("username", ValidateUsername)
		_ = v.RegisterValidation("badge", ValidateBadge)
		_ = v.RegisterValidation("border", ValidateBorder)
		_ = v.RegisterValidation("website", ValidateWebsite)
	}
}
