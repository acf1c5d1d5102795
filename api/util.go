package api

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"

	"portscanner/scanner"
)

var uuidV4Pattern = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-4[a-fA-F0-9]{3}-[abAB89][a-fA-F0-9]{3}-[a-fA-F0-9]{12}$`)

func generateUUID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// Variant bits; version 4 UUID.
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16]), nil
}

// errorKind names the error category reported to API clients.
func errorKind(err error) string {
	switch {
	case errors.Is(err, scanner.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, scanner.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, scanner.ErrResolution):
		return "resolution_error"
	case errors.Is(err, scanner.ErrResourceExhausted):
		return "resource_exhausted"
	case errors.Is(err, scanner.ErrEngineFailure):
		return "engine_failure"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
