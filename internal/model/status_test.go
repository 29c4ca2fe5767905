package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusStorageNames(t *testing.T) {
	cases := map[TaskStatus]string{
		StatusWaiting:   "waiting",
		StatusFetched:   "fetched",
		StatusStarted:   "started",
		StatusCompleted: "completed",
		StatusFailed:    "failed",
	}
	for status, name := range cases {
		v, err := status.Value()
		require.NoError(t, err)
		assert.Equal(t, name, v)

		var scanned TaskStatus
		require.NoError(t, scanned.Scan([]byte(name)))
		assert.Equal(t, status, scanned)
	}

	var s TaskStatus
	assert.Error(t, s.Scan("paused"))
	assert.Error(t, s.Scan(42))
	_, err := TaskStatus(0).Value()
	assert.Error(t, err)
}

func TestCmdTypeStorageNames(t *testing.T) {
	for _, name := range []string{"file", "link", "url"} {
		var c CmdType
		require.NoError(t, c.Scan(name))
		v, err := c.Value()
		require.NoError(t, err)
		assert.Equal(t, name, v)
	}
	_, err := ParseCmdType("photo")
	assert.Error(t, err)
}

func TestTransitions(t *testing.T) {
	allowed := [][2]TaskStatus{
		{StatusWaiting, StatusFetched},
		{StatusFetched, StatusStarted},
		{StatusStarted, StatusCompleted},
		{StatusWaiting, StatusFailed},
		{StatusFetched, StatusFailed},
		{StatusStarted, StatusFailed},
	}
	all := []TaskStatus{StatusWaiting, StatusFetched, StatusStarted, StatusCompleted, StatusFailed}
	isAllowed := func(from, to TaskStatus) bool {
		for _, a := range allowed {
			if a[0] == from && a[1] == to {
				return true
			}
		}
		return false
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, isAllowed(from, to), CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusStarted.IsTerminal())
}

func TestTaskProgress(t *testing.T) {
	task := Task{CurrentLength: 250, TotalLength: 1000}
	assert.InDelta(t, 25.0, task.Progress(), 0.001)

	empty := Task{Status: StatusCompleted}
	assert.Equal(t, 100.0, empty.Progress())
}

func TestSessionExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := &Session{}
	s.SetExpiration(now, time.Hour)
	assert.False(t, s.IsExpired(now))
	assert.True(t, s.IsExpired(now.Add(time.Hour)))

	c := s.Clone()
	c.Username = "other"
	assert.Empty(t, s.Username)
}
