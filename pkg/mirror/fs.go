package mirror

import "github.com/spf13/afero"

// fs is used for mock tests. It will be overridden by test filesystems.
var fs = afero.NewOsFs()
