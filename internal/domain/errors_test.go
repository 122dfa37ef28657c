package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrIncorrectCreationFee, "IncorrectCreationFee"},
		{fmt.Errorf("%w: paid 1", ErrIncorrectCreationFee), "IncorrectCreationFee"},
		{fmt.Errorf("mint: %w", ErrOutputMismatch), "OutputMismatch"},
		{ErrSlippageExceeded, "SlippageExceeded"},
		{ErrIncorrectPrivilege, "IncorrectPrivilege"},
		{errors.New("boom"), "Internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err))
	}
}
