//go:build !windows

package scanner

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isConnectionRefused(err error) bool {
	return errors.Is(err, unix.ECONNREFUSED)
}

func isUnreachable(err error) bool {
	return errors.Is(err, unix.EHOSTUNREACH) ||
		errors.Is(err, unix.ENETUNREACH) ||
		errors.Is(err, unix.EHOSTDOWN)
}

// isResourceExhausted reports local shortages worth retrying after a
// backoff: descriptor limits, socket buffers and ephemeral ports.
func isResourceExhausted(err error) bool {
	return errors.Is(err, unix.EMFILE) ||
		errors.Is(err, unix.ENFILE) ||
		errors.Is(err, unix.ENOBUFS) ||
		errors.Is(err, unix.ENOMEM) ||
		errors.Is(err, unix.EADDRNOTAVAIL) ||
		errors.Is(err, unix.EAGAIN)
}
