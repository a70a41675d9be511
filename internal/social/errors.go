// Package social implements posts, likes, comments, follows, notifications
// and profiles on top of the shared database.
package social

import "errors"

var (
	ErrPostNotFound         = errors.New("post not found")
	ErrCommentNotFound      = errors.New("comment not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotOwner             = errors.New("not the owner")
	ErrNewsImmutable        = errors.New("news items cannot be modified")
	ErrEmptyPost            = errors.New("post needs a title, content or an image")
	ErrEmptyComment         = errors.New("comment cannot be empty")
	ErrFollowSelf           = errors.New("cannot follow yourself")
	ErrUsernameTaken        = errors.New("username already taken")
)

// FieldError reports an invalid input field
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func fieldError(field, message string) error {
	return &FieldError{Field: field, Message: message}
}
