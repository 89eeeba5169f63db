package util

import (
	"fmt"
	"io"
	"os"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/errors"
)

// Mocked for unit testing.
var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// HandleFatalError prints the error in its friendliest form and exits with
// a non-zero status. Only fatal errors should reach it: soft failures are
// reported by the run itself.
func HandleFatalError(err error) {
	fmt.Fprintln(stderr, errors.GetPrintableMessage(err))
	exit(1)
}
