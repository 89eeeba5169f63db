package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/version"
)

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of notion2gdrive.",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("version: %s\n", version.Version)
		},
	}
}
