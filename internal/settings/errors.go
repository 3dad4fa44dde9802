package settings

import "errors"

var (
	// ErrMissingConfiguration is returned when no provider holds a value for a setting and no default applies.
	ErrMissingConfiguration = errors.New("missing configuration")
	// ErrInvalidName is returned when a setting is requested with an empty name.
	ErrInvalidName = errors.New("setting name must not be empty")
)
