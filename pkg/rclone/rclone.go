// Package rclone invokes the external rclone binary to push the local
// mirror to its remote destination.
package rclone

import (
	"os"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/errors"
)

// Config describes the rclone invocation.
type Config struct {
	Exe        string
	Remote     string
	DestFolder string

	// DriveUseTrash forwards --drive-use-trash when set to "true" or
	// "false". Any other value is ignored.
	DriveUseTrash string
}

// Mocked for unit testing.
var (
	execCommand = exec.Command
	stat        = os.Stat
)

// Sync mirrors srcDir to the configured remote folder. rclone deletes
// remote files during the transfer, so the destination always converges to
// the local tree.
func Sync(cfg Config, srcDir string) error {
	if _, err := stat(srcDir); err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFound{Path: srcDir}
		}
		return errors.WithContext(err, "stat mirror dir")
	}

	arguments := args(cfg, srcDir)
	log.WithField("args", strings.Join(arguments, " ")).Debug("Running rclone")

	cmd := execCommand(cfg.Exe, arguments...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errors.WithContext(err, "run rclone")
	}
	return nil
}

func args(cfg Config, srcDir string) []string {
	dest := strings.TrimRight(cfg.Remote+":"+cfg.DestFolder, ":")
	arguments := []string{
		"sync",
		srcDir,
		dest,
		"--create-empty-src-dirs",
		"--delete-during",
		"--transfers", "4",
		"--checkers", "8",
	}

	if trash := strings.ToLower(strings.TrimSpace(cfg.DriveUseTrash)); trash == "true" || trash == "false" {
		arguments = append(arguments, "--drive-use-trash", trash)
	}
	return arguments
}
