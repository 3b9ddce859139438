package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"io", ErrIO, true},
		{"transfer", ErrTransfer, true},
		{"wrapped transfer", fmt.Errorf("upload IMG_1: %w", ErrTransfer), true},
		{"precondition", ErrPrecondition, false},
		{"quota", ErrQuotaExceeded, false},
		{"aborted", ErrAborted, false},
		{"remote missing", ErrRemoteMissing, false},
		{"unknown", errors.New("boom"), false},

		// the halt conditions win even when a retryable class wraps them
		{"transfer wrapping quota", fmt.Errorf("%w: %w", ErrTransfer, ErrQuotaExceeded), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
