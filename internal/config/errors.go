package config

import (
	"errors"

	"github.com/dshills/scrollspy/internal/config/loader"
)

// Errors returned by configuration operations.
var (
	// ErrUnsupportedFormat indicates a config file extension other than
	// .toml, .yaml or .yml.
	ErrUnsupportedFormat = loader.ErrUnsupportedFormat

	// ErrFileNotFound indicates the configuration file doesn't exist.
	ErrFileNotFound = errors.New("config file not found")

	// ErrValidationFailed wraps every problem found by Validate.
	ErrValidationFailed = errors.New("validation failed")
)
