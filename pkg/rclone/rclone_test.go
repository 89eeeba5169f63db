package rclone

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/errors"
)

func TestArgs(t *testing.T) {
	cfg := Config{Remote: "gdrive", DestFolder: "notion"}
	assert.Equal(t, []string{
		"sync", "/tmp/mirror", "gdrive:notion",
		"--create-empty-src-dirs",
		"--delete-during",
		"--transfers", "4",
		"--checkers", "8",
	}, args(cfg, "/tmp/mirror"))
}

func TestArgsRootDestination(t *testing.T) {
	cfg := Config{Remote: "gdrive"}
	assert.Equal(t, "gdrive", args(cfg, "/tmp/mirror")[2])
}

func TestArgsDriveUseTrash(t *testing.T) {
	cfg := Config{Remote: "gdrive", DestFolder: "notion", DriveUseTrash: " True "}
	arguments := args(cfg, "/tmp/mirror")
	assert.Equal(t, []string{"--drive-use-trash", "true"}, arguments[len(arguments)-2:])

	// Values other than true/false are dropped rather than forwarded.
	cfg.DriveUseTrash = "maybe"
	assert.NotContains(t, args(cfg, "/tmp/mirror"), "--drive-use-trash")
}

func TestSyncRunsRclone(t *testing.T) {
	var gotExe string
	var gotArgs []string
	execCommand = func(name string, arg ...string) *exec.Cmd {
		gotExe = name
		gotArgs = arg
		return exec.Command("true")
	}
	stat = func(string) (os.FileInfo, error) {
		return nil, nil
	}
	defer func() {
		execCommand = exec.Command
		stat = os.Stat
	}()

	cfg := Config{Exe: "rclone", Remote: "gdrive", DestFolder: "notion"}
	require.NoError(t, Sync(cfg, "/tmp/mirror"))

	assert.Equal(t, "rclone", gotExe)
	require.NotEmpty(t, gotArgs)
	assert.Equal(t, "sync", gotArgs[0])
	assert.Equal(t, "gdrive:notion", gotArgs[2])
}

func TestSyncMissingMirrorDir(t *testing.T) {
	stat = func(string) (os.FileInfo, error) {
		return nil, os.ErrNotExist
	}
	defer func() {
		stat = os.Stat
	}()

	err := Sync(Config{Exe: "rclone", Remote: "gdrive"}, "/tmp/missing")
	require.Error(t, err)
	_, ok := errors.RootCause(err).(errors.FileNotFound)
	assert.True(t, ok)
}
