package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveRefreshTimeFollowsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("IMPORT_REFRESH_TIME=09:00\n"), 0o644))

	live := NewLive(path, map[string]string{keyRefreshTime: "03:00"})
	assert.Equal(t, "09:00", live.RefreshTime())

	require.NoError(t, os.WriteFile(path, []byte("IMPORT_REFRESH_TIME=10:30\n"), 0o644))
	assert.Equal(t, "10:30", live.RefreshTime())
}

func TestLiveRefreshTimeFallsBackToDefault(t *testing.T) {
	live := NewLive(filepath.Join(t.TempDir(), "missing.env"), map[string]string{keyRefreshTime: "03:00"})
	assert.Equal(t, "03:00", live.RefreshTime())
}

func TestLiveRefreshTimePinnedByEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("IMPORT_REFRESH_TIME=09:00\n"), 0o644))

	live := NewLive(path, nil)
	live.pinned[keyRefreshTime] = "06:15"
	assert.Equal(t, "06:15", live.RefreshTime())
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}
