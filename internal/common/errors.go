// Package common defines shared constants and sentinel errors used across
// PixelVault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// ErrPrecondition marks a misconfigured caller: missing account, device
	// or credentials. Never retried; aborts the current sync pass.
	ErrPrecondition = errors.New("precondition failed")

	// ErrIO marks a local filesystem read/write/copy failure. Retryable at
	// the task level.
	ErrIO = errors.New("io error")

	// ErrTransfer marks a network upload/download failure. Retryable at the
	// task level.
	ErrTransfer = errors.New("transfer error")

	// ErrQuotaExceeded halts further upload enqueuing for the pass.
	ErrQuotaExceeded = errors.New("storage limit reached")

	// ErrAborted is raised when a task observes the cancellation signal. It
	// terminates the task silently without consuming a retry attempt.
	ErrAborted = errors.New("operation aborted")

	// ErrRemoteMissing marks a remote object reported deleted upstream.
	// Terminal for the affected item only.
	ErrRemoteMissing = errors.New("remote object missing")

	// Auth errors (invalid or expired token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// IsRetryable reports whether err should be fed back into the transfer
// queue's retry policy. Precondition, quota and abort conditions are never
// retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPrecondition) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrAborted) ||
		errors.Is(err, ErrRemoteMissing) {
		return false
	}
	return errors.Is(err, ErrIO) || errors.Is(err, ErrTransfer)
}
