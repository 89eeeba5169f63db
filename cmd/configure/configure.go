package configure

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cwjcw/Notion2GoogleDriver/cmd/util"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/config"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/errors"
)

// New creates a new `configure` command.
func New() *cobra.Command {
	var cliOpts config.User
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Write the notion2gdrive user configuration.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(cliOpts); err != nil {
				err = errors.NewFriendlyError("Failed to write configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}

	cmd.Flags().StringVar(&cliOpts.NotionToken, "token", "",
		"The Notion integration token. "+
			"Optional: NOTION_TOKEN in the environment takes precedence.")
	cmd.Flags().StringVar(&cliOpts.NotionVersion, "notion-version", "",
		"The Notion API version to request.")
	cmd.Flags().StringVar(&cliOpts.MirrorDir, "mirror-dir", "",
		"The directory the local mirror is built in.")
	cmd.Flags().IntVar(&cliOpts.Concurrency, "concurrency", 0,
		"How many objects to fetch and write in parallel.")
	cmd.Flags().StringVar(&cliOpts.Rclone.Remote, "rclone-remote", "",
		"The rclone remote to sync the mirror to.")
	cmd.Flags().StringVar(&cliOpts.Rclone.DestFolder, "rclone-dest", "",
		"The folder on the rclone remote to sync into.")
	return cmd
}

func run(cliOpts config.User) error {
	if err := config.WriteUser(cliOpts); err != nil {
		return err
	}

	path, err := config.GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}
	log.WithField("path", path).Info("Wrote user configuration")
	return nil
}
