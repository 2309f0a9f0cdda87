package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstructorsWrapSentinels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err      error
		sentinel error
	}{
		{Spawnf("tool '%s' missing", "ionic"), ErrSpawn},
		{ToolReportedf("boom"), ErrToolReported},
		{Timeoutf("after %d seconds", 60), ErrTimeout},
		{Discoveryf("adb failed"), ErrDiscovery},
		{Resolutionf("no target"), ErrResolution},
		{AttachChannelf("no socket"), ErrAttachChannel},
	}

	for _, tc := range cases {
		require.ErrorIs(t, tc.err, tc.sentinel)
	}

	err := Spawnf("tool '%s' missing", "ionic")
	require.Contains(t, err.Error(), "tool 'ionic' missing")
}

func TestIsCancellation(t *testing.T) {
	t.Parallel()

	require.True(t, IsCancellation(context.Canceled))
	require.True(t, IsCancellation(fmt.Errorf("wrapped: %w", context.Canceled)))
	require.False(t, IsCancellation(context.DeadlineExceeded))
	require.False(t, IsCancellation(errors.New("other")))
	require.False(t, IsCancellation(nil))
}

func TestIsTimeout(t *testing.T) {
	t.Parallel()

	require.True(t, IsTimeout(Timeoutf("too slow")))
	require.True(t, IsTimeout(context.DeadlineExceeded))
	require.False(t, IsTimeout(context.Canceled))
	require.False(t, IsTimeout(nil))
}

func TestFilterCancellation(t *testing.T) {
	t.Parallel()

	require.NoError(t, FilterCancellation(nil))
	require.NoError(t, FilterCancellation(context.Canceled))
	require.NoError(t, FilterCancellation(fmt.Errorf("stopping: %w", context.Canceled)))

	real := errors.New("real failure")
	require.Equal(t, real, FilterCancellation(real))
}
