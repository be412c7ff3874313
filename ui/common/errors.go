package common

import (
	"errors"

	"github.com/deemkeen/stegogram/auth"
)

// Describe turns an auth error into a line fit for a form.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Wrong email or password."
	case errors.Is(err, auth.ErrEmailInUse):
		return "This email is already registered."
	case errors.Is(err, auth.ErrUsernameInUse):
		return "This username is already taken."
	case errors.Is(err, auth.ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, auth.ErrInvalidUsername):
		return "Usernames are 3 to 30 letters, digits or underscores."
	case errors.Is(err, auth.ErrWeakPassword):
		return "Passwords need at least 6 characters."
	case errors.Is(err, auth.ErrInvalidResetToken):
		return "This reset code is invalid or has expired."
	default:
		return "Something went wrong, please try again."
	}
}
