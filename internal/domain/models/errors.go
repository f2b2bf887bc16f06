package models

import "errors"

var (
	// ErrMalformedInput marks a document or snapshot missing an expected field.
	// Items failing with it are skipped, never fatal.
	ErrMalformedInput = errors.New("malformed input")

	// ErrTransientSource marks upstream data that is temporarily unavailable.
	ErrTransientSource = errors.New("transient source failure")

	// ErrConfiguration is fatal at startup.
	ErrConfiguration = errors.New("configuration error")
)
