package mirror

import (
	"encoding/json"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/errors"
)

// indexFileName is the persisted index under the mirror root. It records
// what the previous run wrote so the next run can sync incrementally.
const indexFileName = ".mirror_index.json"

// Entry is the persisted state for one mirrored object.
type Entry struct {
	// LastEditedTime is the fingerprint used for change detection. It's an
	// opaque token compared for equality, never parsed as a time.
	LastEditedTime string `json:"last_edited_time"`

	// Path is the object's file relative to the mirror root, with forward
	// slashes.
	Path string `json:"path"`
}

// Index is the persisted state of one complete run.
type Index struct {
	GeneratedAt string           `json:"generated_at"`
	Pages       map[string]Entry `json:"pages"`
	Databases   map[string]Entry `json:"databases"`
}

func emptyIndex() Index {
	return Index{
		Pages:     map[string]Entry{},
		Databases: map[string]Entry{},
	}
}

// loadIndex reads the previous run's index from the mirror root. A missing
// or unparsable index yields an empty baseline, never an error: the worst
// case is rewriting everything.
func loadIndex(root string) Index {
	data, err := afero.ReadFile(fs, filepath.Join(root, indexFileName))
	if err != nil {
		return emptyIndex()
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		log.WithError(err).Warn(
			"Ignoring unreadable mirror index. Every object will be rewritten.")
		return emptyIndex()
	}

	if index.Pages == nil {
		index.Pages = map[string]Entry{}
	}
	if index.Databases == nil {
		index.Databases = map[string]Entry{}
	}
	return index
}

// saveIndex persists the index for the run. It must only be called after
// the write phase finished, so that an index on disk always describes a
// complete run.
func saveIndex(root string, index Index) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return errors.WithContext(err, "marshal index")
	}

	path := filepath.Join(root, indexFileName)
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return errors.WithContext(err, "write index")
	}
	return nil
}

// reconcile deletes the recorded file of every id that was mirrored by the
// previous run but is gone from the current one, pruning any directories
// the deletion left empty. It returns how many files were removed.
func reconcile(root string, prev, curr map[string]Entry) int {
	removed := 0
	for id, entry := range prev {
		if _, ok := curr[id]; ok {
			continue
		}
		if entry.Path == "" {
			continue
		}
		if removeStale(root, entry.Path) {
			removed++
		}
	}
	return removed
}

// removeStale deletes the file at `relPath` under `root` if it exists, and
// prunes now-empty ancestor directories up to (not including) the root.
func removeStale(root, relPath string) bool {
	abs := filepath.Join(root, filepath.FromSlash(relPath))
	exists, err := afero.Exists(fs, abs)
	if err != nil || !exists {
		return false
	}

	if err := fs.Remove(abs); err != nil {
		log.WithError(err).WithField("path", abs).Warn(
			"Failed to remove stale mirrored file. It will linger until the next run.")
		return false
	}

	pruneEmptyDirs(filepath.Dir(abs), root)
	return true
}

// pruneEmptyDirs removes empty directories walking up from `dir` until the
// mirror root or the first non-empty directory.
func pruneEmptyDirs(dir, root string) {
	root = filepath.Clean(root)
	for {
		dir = filepath.Clean(dir)
		if dir == root || dir == "." || dir == string(filepath.Separator) {
			return
		}

		entries, err := afero.ReadDir(fs, dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := fs.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
