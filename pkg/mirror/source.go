package mirror

import (
	"github.com/cwjcw/Notion2GoogleDriver/pkg/notion"
)

// Source is the remote object source the mirror reads from.
// *notion.Client implements it.
type Source interface {
	// SearchPages and SearchDatabases list every object of the kind that's
	// shared with the integration.
	SearchPages() ([]notion.Object, error)
	SearchDatabases() ([]notion.Object, error)

	// GetPage and GetDatabase fetch the full metadata for one object.
	GetPage(id string) (notion.Object, error)
	GetDatabase(id string) (notion.Object, error)

	// QueryDatabase lists the member pages of a database.
	QueryDatabase(id string) ([]notion.Object, error)

	// ListBlockChildren lists the direct child blocks of a page or block.
	ListBlockChildren(id string) ([]notion.Block, error)
}
