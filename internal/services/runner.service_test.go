package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_Stdout(t *testing.T) {
	out, err := NewExecRunner(time.Second).Run(context.Background(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestExecRunner_NonZeroExitKeepsOutput(t *testing.T) {
	out, err := NewExecRunner(time.Second).Run(context.Background(), "sh", "-c", "echo inactive; echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Equal(t, "inactive\n", out)
	assert.Contains(t, err.Error(), "boom")
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, err := NewExecRunner(time.Second).Run(context.Background(), "wallboard-no-such-binary")
	assert.Error(t, err)
}

func TestExecRunner_Timeout(t *testing.T) {
	start := time.Now()
	_, err := NewExecRunner(50*time.Millisecond).Run(context.Background(), "sleep", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 3*time.Second)
}
