package xdg

import (
	"os"
	"path/filepath"
)

const AppName = "autograder"

// XDGDirs resolves the XDG base directories the grader keeps files in.
type XDGDirs struct {
	stateHome string
	cacheHome string
}

// NewXDGDirs reads XDG_STATE_HOME and XDG_CACHE_HOME, falling back to the
// defaults under the home directory.
func NewXDGDirs() *XDGDirs {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
		if homeDir == "" {
			homeDir = "/tmp"
		}
	}

	xdg := &XDGDirs{}

	xdg.stateHome = os.Getenv("XDG_STATE_HOME")
	if xdg.stateHome == "" {
		xdg.stateHome = filepath.Join(homeDir, ".local", "state")
	}

	xdg.cacheHome = os.Getenv("XDG_CACHE_HOME")
	if xdg.cacheHome == "" {
		xdg.cacheHome = filepath.Join(homeDir, ".cache")
	}

	return xdg
}

func (x *XDGDirs) StateHome() string {
	return x.stateHome
}

func (x *XDGDirs) CacheHome() string {
	return x.cacheHome
}

// AppStateDir returns the application-specific state directory
func (x *XDGDirs) AppStateDir(appName string) string {
	return filepath.Join(x.stateHome, appName)
}

// AppCacheDir returns the application-specific cache directory
func (x *XDGDirs) AppCacheDir(appName string) string {
	return filepath.Join(x.cacheHome, appName)
}

// LedgerPath is the default location of the graded-submission ledger.
func (x *XDGDirs) LedgerPath() string {
	return filepath.Join(x.AppStateDir(AppName), "ledger.db")
}

// DownloadDir is where object storage submissions of assignmentID are
// downloaded when no grading directory is given.
func (x *XDGDirs) DownloadDir(assignmentID string) string {
	return filepath.Join(x.AppCacheDir(AppName), "submissions", assignmentID)
}
