package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsInvalidSpec(t *testing.T) {
	s := New(time.UTC, nil)
	err := s.Add("close_day", "not a spec", func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close_day")
	assert.Equal(t, 0, s.Len())
}

func TestAddEmptySpecDisablesJob(t *testing.T) {
	s := New(time.UTC, nil)
	require.NoError(t, s.Add("close_day", "", func() {}))
	assert.Equal(t, 0, s.Len())
}

func TestStartStop(t *testing.T) {
	s := New(nil, nil)
	require.NoError(t, s.Add("close_day", "0 16 * * 1-5", func() {}))
	assert.Equal(t, 1, s.Len())

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
