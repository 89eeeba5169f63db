package sync

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cwjcw/Notion2GoogleDriver/cmd/util"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/config"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/errors"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/mirror"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/notion"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/rclone"
)

// New creates a new `sync` command.
func New() *cobra.Command {
	var fullRebuild, noRclone bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the Notion workspace locally and sync it to Google Drive.",
		Long: "Mirror every page and database shared with the integration into\n" +
			"the local mirror directory, then sync that directory to the\n" +
			"configured rclone remote.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(fullRebuild, noRclone); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVar(&fullRebuild, "full-rebuild", false,
		"Rebuild the local mirror from scratch instead of syncing incrementally.")
	cmd.Flags().BoolVar(&noRclone, "no-rclone", false,
		"Only build the local mirror, do not run rclone sync.")
	return cmd
}

func run(fullRebuild, noRclone bool) error {
	userConfig, err := config.ParseUser()
	if err != nil {
		return errors.WithContext(err, "load config")
	}

	client := notion.New(userConfig.NotionToken, userConfig.NotionVersion, notion.Params{})
	m := mirror.New(client, userConfig.MirrorDir, mirror.Params{
		Concurrency: userConfig.Concurrency,
	})

	result, err := m.Build(!fullRebuild)
	if err != nil {
		return errors.WithContext(err, "build mirror")
	}

	log.WithFields(log.Fields{
		"pages":     result.PagesWritten,
		"databases": result.DatabasesWritten,
		"dir":       result.LocalDir,
	}).Info("Local mirror is up to date")

	if len(result.Issues) > 0 {
		log.WithField("count", len(result.Issues)).Warn(
			"Some objects were not fully mirrored. " +
				"See access_issues.txt in the mirror directory.")
	}

	if noRclone {
		log.Info("Skipping rclone sync (--no-rclone)")
		return nil
	}

	log.Info("Syncing mirror to Google Drive")
	err = rclone.Sync(rclone.Config{
		Exe:           userConfig.Rclone.Exe,
		Remote:        userConfig.Rclone.Remote,
		DestFolder:    userConfig.Rclone.DestFolder,
		DriveUseTrash: userConfig.Rclone.DriveUseTrash,
	}, result.LocalDir)
	if err != nil {
		return errors.WithContext(err, "sync to remote")
	}

	log.Info("Done")
	return nil
}
