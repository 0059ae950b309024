package util

import "errors"

// Sentinel errors for package util.
// These errors can be checked with errors.Is() for specific error handling.
var (
	ErrExpectedFile = errors.New("expected file, got directory")

	ErrShortWrite = errors.New("short write")
)
