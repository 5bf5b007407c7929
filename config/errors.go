package config

import "errors"

var (
	// ErrUnknownFormat indicates a file extension or output format other than YAML or JSON.
	ErrUnknownFormat = errors.New("config: unknown format (use yaml or json)")

	// ErrInvalid wraps every validation failure reported by Validate.
	ErrInvalid = errors.New("config: invalid configuration")
)
