package xdg_test

import (
	"path/filepath"
	"testing"

	"github.com/programme-lv/autograder/internal/xdg"
	"github.com/stretchr/testify/assert"
)

func TestXDGDirsFromEnv(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/var/state")
	t.Setenv("XDG_CACHE_HOME", "/var/cache")

	x := xdg.NewXDGDirs()
	assert.Equal(t, "/var/state", x.StateHome())
	assert.Equal(t, "/var/cache", x.CacheHome())
	assert.Equal(t, filepath.Join("/var/state", "autograder", "ledger.db"), x.LedgerPath())
	assert.Equal(t, filepath.Join("/var/cache", "autograder", "submissions", "42"), x.DownloadDir("42"))
}

func TestXDGDirsDefaults(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "/home/ann")

	x := xdg.NewXDGDirs()
	assert.Equal(t, filepath.Join("/home/ann", ".local", "state"), x.StateHome())
	assert.Equal(t, filepath.Join("/home/ann", ".cache"), x.CacheHome())
}
