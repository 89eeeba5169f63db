package verify

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwjcw/Notion2GoogleDriver/cmd/util"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/config"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/errors"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/notion"
)

// sampleLimit caps how many objects of each kind are listed.
const sampleLimit = 20

// Mocked for unit testing.
var stdout io.Writer = os.Stdout

// New creates a new `verify` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check Notion access and list what's shared with the integration.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run() error {
	userConfig, err := config.ParseUser()
	if err != nil {
		return errors.WithContext(err, "load config")
	}

	client := notion.New(userConfig.NotionToken, userConfig.NotionVersion, notion.Params{})
	pages, databases, others, err := client.SearchAll()
	if err != nil {
		return errors.WithContext(err, "search workspace")
	}

	fmt.Fprintf(stdout, "Pages: %d\n", len(pages))
	fmt.Fprintf(stdout, "Databases: %d\n", len(databases))
	fmt.Fprintf(stdout, "Others: %d\n", len(others))

	fmt.Fprintf(stdout, "\nSample Pages:\n")
	printSample(pages)
	fmt.Fprintf(stdout, "\nSample Databases:\n")
	printSample(databases)
	return nil
}

func printSample(objects []notion.Object) {
	for i, obj := range objects {
		if i == sampleLimit {
			return
		}
		fmt.Fprintf(stdout, "- %s %s\n", obj.DisplayTitle(), obj.ID)
	}
}
