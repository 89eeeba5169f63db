package mirror

import (
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/notion"
)

// Top-level buckets in the mirror root.
const (
	workspaceDir = "_workspace"
	cyclesDir    = "_cycles"
	orphansDir   = "_orphans"
	otherDir     = "_other"
)

// maxNameLength caps sanitized file and folder names. Google Drive and most
// filesystems start misbehaving well past this.
const maxNameLength = 160

var invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
var whitespaceRuns = regexp.MustCompile(`\s+`)

// SafeName sanitizes a display title into a filesystem-safe name.
func SafeName(name, fallback string) string {
	name = invalidNameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	name = whitespaceRuns.ReplaceAllString(name, "_")
	name = strings.TrimRight(name, "._ ")
	if name == "" {
		return fallback
	}
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	return name
}

// shortID returns the first 8 hex characters of a Notion id. It's appended
// to names so that same-titled siblings stay distinct.
func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if id == "" {
		return "unknown"
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

// pathResolver derives the mirror-relative path for any object id by
// walking parent references through the object cache. Resolutions are
// memoized for the run; the memo must be thrown away between runs because
// paths legitimately change when a parent moves.
type pathResolver struct {
	cache *objectCache

	mu   sync.Mutex
	memo map[string]string
}

func newPathResolver(cache *objectCache) *pathResolver {
	return &pathResolver{cache: cache, memo: map[string]string{}}
}

// pagePath returns the slash-separated path of a page relative to the
// mirror root.
func (r *pathResolver) pagePath(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(id, map[string]bool{})
}

// databaseFolder returns the folder of a database relative to the mirror
// root. The id suffix keeps folders unique even under title collisions.
func (r *pathResolver) databaseFolder(id string) string {
	db := r.cache.database(id)
	title := SafeName(db.DisplayTitle(), "database")
	return "DB_" + title + "_" + shortID(id)
}

// pageFileName returns the file name for a page.
func (r *pathResolver) pageFileName(page notion.Object) string {
	title := SafeName(page.DisplayTitle(), "page")
	return title + "_" + shortID(page.ID) + ".md"
}

// resolve walks the parent chain. `stack` holds the ids currently being
// resolved: revisiting one means the parent references form a cycle, and
// the page is parked under the cycles bucket instead of recursing forever.
func (r *pathResolver) resolve(id string, stack map[string]bool) string {
	if memoized, ok := r.memo[id]; ok {
		return memoized
	}

	page, known := r.cache.page(id)
	fileName := r.pageFileName(page)

	if stack[id] {
		resolved := path.Join(cyclesDir, fileName)
		r.memo[id] = resolved
		return resolved
	}
	stack[id] = true

	var resolved string
	switch page.Parent.Type {
	case notion.ParentWorkspace:
		resolved = path.Join(workspaceDir, fileName)
	case notion.ParentDatabase:
		resolved = path.Join(r.databaseFolder(page.Parent.DatabaseID), fileName)
	case notion.ParentPage:
		if _, parentKnown := r.cache.page(page.Parent.PageID); !parentKnown {
			// The parent was never discovered, so its own chain can't be
			// trusted. Park the page instead of nesting under a stub.
			resolved = path.Join(orphansDir, fileName)
			break
		}
		// Children of a page live in a directory named after the parent's
		// file with the extension stripped.
		parentPath := r.resolve(page.Parent.PageID, stack)
		parentDir := strings.TrimSuffix(parentPath, ".md")
		resolved = path.Join(parentDir, fileName)
	default:
		if !known && page.Parent.Type == "" {
			resolved = path.Join(orphansDir, fileName)
		} else {
			resolved = path.Join(otherDir, fileName)
		}
	}

	r.memo[id] = resolved
	return resolved
}
