package cmderr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	require.Zero(t, ExitCode(nil))
	require.Equal(t, 1, ExitCode(errors.New("any")))

	err := fmt.Errorf("wrapped: %w", ExitErr{Code: 3, Cause: errors.New("cause")})
	require.Equal(t, 3, ExitCode(err))
	require.EqualError(t, err, "wrapped: cause")
}
