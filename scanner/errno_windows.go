//go:build windows

package scanner

import (
	"errors"
	"strings"
	"syscall"
)

// Winsock error codes not exported by package syscall.
const (
	wsaENOBUFS       = syscall.Errno(10055)
	wsaEMFILE        = syscall.Errno(10024)
	wsaEADDRNOTAVAIL = syscall.Errno(10049)
	wsaENETUNREACH   = syscall.Errno(10051)
	wsaEHOSTUNREACH  = syscall.Errno(10065)
	wsaEHOSTDOWN     = syscall.Errno(10064)
)

func isConnectionRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "actively refused")
}

func isUnreachable(err error) bool {
	return errors.Is(err, wsaEHOSTUNREACH) ||
		errors.Is(err, wsaENETUNREACH) ||
		errors.Is(err, wsaEHOSTDOWN)
}

func isResourceExhausted(err error) bool {
	return errors.Is(err, wsaENOBUFS) ||
		errors.Is(err, wsaEMFILE) ||
		errors.Is(err, wsaEADDRNOTAVAIL)
}
