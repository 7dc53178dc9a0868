package sc

import "errors"

var (
	ErrPluginNotFound        = errors.New("plugin not found")
	ErrPluginNotAvailable    = errors.New("plugin not available")
	ErrPluginExists          = errors.New("plugin already registered")
	ErrInvalidSafetyLevel    = errors.New("invalid safety level")
	ErrInvalidConflictPolicy = errors.New("invalid conflict policy")
	ErrOperationNotFound     = errors.New("operation not found")
)
