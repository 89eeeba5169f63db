package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cwjcw/Notion2GoogleDriver/cmd/configure"
	syncCmd "github.com/cwjcw/Notion2GoogleDriver/cmd/sync"
	"github.com/cwjcw/Notion2GoogleDriver/cmd/util"
	"github.com/cwjcw/Notion2GoogleDriver/cmd/verify"
	"github.com/cwjcw/Notion2GoogleDriver/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info
// and above.
const verboseLogKey = "NOTION2GDRIVE_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:          "notion2gdrive",
		Short:        "Mirror a Notion workspace to a local folder and sync it to Google Drive.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		configure.New(),
		syncCmd.New(),
		verify.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
