package mirror

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/errors"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/markdown"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/notion"
)

// DefaultConcurrency bounds the worker pools for hydration and writing.
const DefaultConcurrency = 4

// databaseIndexName is the index file inside every database folder.
const databaseIndexName = "__database.md"

// Result summarizes one mirroring run.
type Result struct {
	LocalDir         string
	PagesWritten     int
	DatabasesWritten int

	// Issues are the soft failures recorded during the run. They're also
	// written to the access report under the mirror root.
	Issues []AccessIssue
}

// Params are optional settings for New. Zero values use defaults.
type Params struct {
	Concurrency int
	Clock       clockwork.Clock
}

// Mirror materializes the remote object graph as a local directory tree.
// A Mirror instance owns its cache and path memo, and must not be shared
// between concurrent runs.
type Mirror struct {
	source      Source
	outputDir   string
	concurrency int
	clock       clockwork.Clock

	cache *objectCache
	paths *pathResolver

	mu     sync.Mutex
	issues []AccessIssue
	done   int
}

// New creates a Mirror that materializes `source` under `outputDir`.
func New(source Source, outputDir string, params Params) *Mirror {
	if params.Concurrency < 1 {
		params.Concurrency = DefaultConcurrency
	}
	if params.Clock == nil {
		params.Clock = clockwork.NewRealClock()
	}

	cache := newObjectCache()
	return &Mirror{
		source:      source,
		outputDir:   outputDir,
		concurrency: params.Concurrency,
		clock:       params.Clock,
		cache:       cache,
		paths:       newPathResolver(cache),
	}
}

// Build runs one mirroring pass. In incremental mode it syncs the existing
// mirror in place against the persisted index. Otherwise it rebuilds the
// whole tree in a temporary directory and atomically replaces the mirror,
// so an observer never sees a partially-populated tree.
func (m *Mirror) Build(incremental bool) (Result, error) {
	if incremental {
		return m.buildIncremental()
	}
	return m.buildFull()
}

func (m *Mirror) buildFull() (Result, error) {
	log.Info("Starting full mirror rebuild")

	tmpDir := m.outputDir + ".tmp"
	if err := fs.RemoveAll(tmpDir); err != nil {
		return Result{}, errors.WithContext(err, "clear temp dir")
	}
	if err := fs.MkdirAll(tmpDir, 0755); err != nil {
		return Result{}, errors.WithContext(err, "create temp dir")
	}

	if err := m.discoverAndHydrate(); err != nil {
		return Result{}, err
	}
	pageCount := len(m.cache.pageIDs())
	dbCount := len(m.cache.databaseIDs())

	pagesWritten, pagesIndex := m.writePages(tmpDir, nil)
	dbsWritten, dbsIndex := m.writeDatabases(tmpDir, nil)

	if err := m.writeRootIndex(tmpDir, pageCount, dbCount); err != nil {
		return Result{}, err
	}
	if err := m.writeAccessReport(tmpDir); err != nil {
		return Result{}, err
	}
	if err := saveIndex(tmpDir, m.newIndex(pagesIndex, dbsIndex)); err != nil {
		return Result{}, err
	}

	log.Info("Publishing rebuilt mirror")
	if err := m.atomicReplace(tmpDir, m.outputDir); err != nil {
		return Result{}, errors.WithContext(err, "publish mirror")
	}

	return Result{
		LocalDir:         m.outputDir,
		PagesWritten:     pagesWritten,
		DatabasesWritten: dbsWritten,
		Issues:           m.recordedIssues(),
	}, nil
}

func (m *Mirror) buildIncremental() (Result, error) {
	log.Info("Starting incremental mirror sync")

	if err := fs.MkdirAll(m.outputDir, 0755); err != nil {
		return Result{}, errors.WithContext(err, "create mirror dir")
	}

	if err := m.discoverAndHydrate(); err != nil {
		return Result{}, err
	}
	pageCount := len(m.cache.pageIDs())
	dbCount := len(m.cache.databaseIDs())

	prev := loadIndex(m.outputDir)

	pagesWritten, pagesIndex := m.writePages(m.outputDir, prev.Pages)
	if removed := reconcile(m.outputDir, prev.Pages, pagesIndex); removed > 0 {
		log.WithField("count", removed).Info("Removed pages deleted upstream")
	}

	dbsWritten, dbsIndex := m.writeDatabases(m.outputDir, prev.Databases)
	if removed := reconcile(m.outputDir, prev.Databases, dbsIndex); removed > 0 {
		log.WithField("count", removed).Info("Removed databases deleted upstream")
	}

	if err := m.writeRootIndex(m.outputDir, pageCount, dbCount); err != nil {
		return Result{}, err
	}
	if err := m.writeAccessReport(m.outputDir); err != nil {
		return Result{}, err
	}
	if err := saveIndex(m.outputDir, m.newIndex(pagesIndex, dbsIndex)); err != nil {
		return Result{}, err
	}

	return Result{
		LocalDir:         m.outputDir,
		PagesWritten:     pagesWritten,
		DatabasesWritten: dbsWritten,
		Issues:           m.recordedIssues(),
	}, nil
}

// discoverAndHydrate lists everything shared with the integration and then
// upgrades each record with a point-fetch. Both finish before any path
// resolution or writing starts, so the cache is stable for the whole run.
func (m *Mirror) discoverAndHydrate() error {
	log.Info("Discovering pages")
	pages, err := m.source.SearchPages()
	if err != nil {
		return errors.WithContext(err, "search pages")
	}

	log.Info("Discovering databases")
	databases, err := m.source.SearchDatabases()
	if err != nil {
		return errors.WithContext(err, "search databases")
	}

	m.cache.populate(pages, databases)

	log.WithFields(log.Fields{
		"pages":     len(m.cache.pageIDs()),
		"databases": len(m.cache.databaseIDs()),
	}).Info("Fetching object metadata")
	m.cache.hydrate(m.source, m.concurrency)
	return nil
}

type writeResult struct {
	id    string
	entry *Entry
	wrote bool
	err   error
}

// writeAll processes each id through `handle` on a bounded worker pool and
// assembles the new index for the kind. Per-object failures are recorded as
// soft failures and leave the id out of the index, so it's retried fresh on
// the next run.
func (m *Mirror) writeAll(kind string, ids []string,
	handle func(id string) (*Entry, bool, error)) (int, map[string]Entry) {

	numWorkers := m.concurrency
	if len(ids) < numWorkers {
		numWorkers = len(ids)
	}

	index := map[string]Entry{}
	if numWorkers == 0 {
		return 0, index
	}

	m.mu.Lock()
	m.done = 0
	m.mu.Unlock()
	total := len(ids)

	var waitGroup sync.WaitGroup
	idChan := make(chan string, numWorkers*2)
	results := make(chan writeResult, numWorkers)
	for i := 0; i < numWorkers; i++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			for id := range idChan {
				entry, wrote, err := handle(id)
				m.bumpProgress(kind, total)
				results <- writeResult{id: id, entry: entry, wrote: wrote, err: err}
			}
		}()
	}

	go func() {
		for _, id := range ids {
			idChan <- id
		}
		close(idChan)

		waitGroup.Wait()
		close(results)
	}()

	written := 0
	for res := range results {
		if res.err != nil {
			log.WithError(res.err).WithField(kind, res.id).Warn(
				"Failed to mirror object. It will be retried on the next run.")
			m.recordIssue(res.id, "", res.err)
			continue
		}
		if res.entry != nil {
			index[res.id] = *res.entry
		}
		if res.wrote {
			written++
		}
	}
	return written, index
}

func (m *Mirror) bumpProgress(kind string, total int) {
	m.mu.Lock()
	m.done++
	done := m.done
	m.mu.Unlock()
	log.Debugf("Mirrored %s %d/%d", kind, done, total)
}

func (m *Mirror) writePages(root string, prev map[string]Entry) (int, map[string]Entry) {
	log.Info("Writing pages")
	return m.writeAll("page", m.cache.pageIDs(), func(id string) (*Entry, bool, error) {
		return m.writePage(root, id, prev)
	})
}

func (m *Mirror) writeDatabases(root string, prev map[string]Entry) (int, map[string]Entry) {
	log.Info("Writing databases")
	return m.writeAll("database", m.cache.databaseIDs(), func(id string) (*Entry, bool, error) {
		return m.writeDatabase(root, id, prev)
	})
}

// writePage mirrors one page, deciding between skip, write, and relocate
// based on the previous run's entry. A nil prev map means everything is
// written (full rebuild).
func (m *Mirror) writePage(root, id string, prev map[string]Entry) (*Entry, bool, error) {
	page, _ := m.cache.page(id)
	if page.Archived {
		return nil, false, nil
	}

	relPath := m.paths.pagePath(id)
	entry := Entry{LastEditedTime: page.LastEditedTime, Path: relPath}

	if skip := m.applyDiff(root, id, entry, prev); skip {
		return &entry, false, nil
	}

	absPath := filepath.Join(root, filepath.FromSlash(relPath))
	if err := fs.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, false, errors.WithContext(err, "create parent dir")
	}

	lines := m.renderPage(page)
	if err := afero.WriteFile(fs, absPath, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return nil, false, errors.WithContext(err, "write page")
	}
	return &entry, true, nil
}

// writeDatabase mirrors one database as a folder holding an index file.
// The member pages themselves are mirrored by the page phase.
func (m *Mirror) writeDatabase(root, id string, prev map[string]Entry) (*Entry, bool, error) {
	db := m.cache.database(id)
	if db.Archived {
		return nil, false, nil
	}

	folderRel := m.paths.databaseFolder(id)
	relPath := path.Join(folderRel, databaseIndexName)
	entry := Entry{LastEditedTime: db.LastEditedTime, Path: relPath}

	if skip := m.applyDiff(root, id, entry, prev); skip {
		return &entry, false, nil
	}

	absPath := filepath.Join(root, filepath.FromSlash(relPath))
	if err := fs.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, false, errors.WithContext(err, "create database dir")
	}

	lines := m.databaseIndexLines(db, folderRel)
	if err := afero.WriteFile(fs, absPath, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return nil, false, errors.WithContext(err, "write database index")
	}
	return &entry, true, nil
}

// applyDiff implements the incremental decision: skip when the fingerprint
// and path are unchanged and the file still exists, otherwise write, first
// cleaning up the old location when the object moved.
func (m *Mirror) applyDiff(root, id string, entry Entry, prev map[string]Entry) bool {
	if prev == nil {
		return false
	}

	prevEntry, ok := prev[id]
	if !ok {
		return false
	}

	if prevEntry.LastEditedTime == entry.LastEditedTime && prevEntry.Path == entry.Path {
		abs := filepath.Join(root, filepath.FromSlash(entry.Path))
		if exists, _ := afero.Exists(fs, abs); exists {
			return true
		}
		return false
	}

	if prevEntry.Path != "" && prevEntry.Path != entry.Path {
		removeStale(root, prevEntry.Path)
	}
	return false
}

// renderPage renders one page's markdown document: frontmatter, title,
// properties, and the block content. Inaccessible content degrades to a
// placeholder and is recorded in the access report.
func (m *Mirror) renderPage(page notion.Object) []string {
	lines := []string{
		"---",
		"id: " + page.ID,
		"url: " + page.URL,
		"last_edited_time: " + page.LastEditedTime,
		"mirror_generated_at: " + m.nowUTC(),
		"---",
		"",
		"# " + page.DisplayTitle(),
		"",
	}

	if props := propertyLines(page); len(props) > 0 {
		lines = append(lines, "## Properties")
		lines = append(lines, props...)
		lines = append(lines, "")
	}

	lines = append(lines, "## Content", "")
	blocks, err := m.source.ListBlockChildren(page.ID)
	if err != nil {
		m.recordIssue(page.ID, page.ID, err)
		lines = append(lines, "- (content not accessible; check access report)")
	} else {
		lines = append(lines, m.renderBlocks(blocks, 0, page.ID)...)
	}
	return append(lines, "")
}

// renderBlocks renders blocks depth-first, fetching nested children on
// demand. A failure listing one block's children is scoped to that block.
func (m *Mirror) renderBlocks(blocks []notion.Block, depth int, pageID string) []string {
	var lines []string
	for _, b := range blocks {
		lines = append(lines, markdown.Block(b, depth)...)
		if b.HasChildren {
			children, err := m.source.ListBlockChildren(b.ID)
			if err != nil {
				m.recordIssue(pageID, b.ID, err)
				lines = append(lines, markdown.Indent(depth+1)+
					"- (children not accessible; check access report)")
			} else {
				lines = append(lines, m.renderBlocks(children, depth+1, pageID)...)
			}
		}
		lines = append(lines, "")
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// databaseIndexLines renders a database's __database.md: frontmatter and a
// link per member page, relative to the database folder.
func (m *Mirror) databaseIndexLines(db notion.Object, folderRel string) []string {
	lines := []string{
		"---",
		"id: " + db.ID,
		"url: " + db.URL,
		"mirror_generated_at: " + m.nowUTC(),
		"---",
		"",
		"# " + db.DisplayTitle(),
		"",
		"## Entries",
		"",
	}

	entries, err := m.source.QueryDatabase(db.ID)
	if err != nil {
		log.WithError(err).WithField("database", db.ID).Debug(
			"Failed to query database entries")
		entries = nil
	}

	if len(entries) == 0 {
		lines = append(lines, "- (no access or empty)")
		return append(lines, "")
	}

	for _, entryPage := range entries {
		if entryPage.ID == "" {
			continue
		}
		m.cache.addPageIfAbsent(entryPage)

		target := m.paths.pagePath(entryPage.ID)
		link, err := filepath.Rel(folderRel, target)
		if err != nil {
			link = target
		}
		title, _ := m.cache.page(entryPage.ID)
		lines = append(lines, "- ["+title.DisplayTitle()+"]("+filepath.ToSlash(link)+")")
	}
	return append(lines, "")
}

// propertyLines renders a page's non-title properties, sorted by name so
// the output is stable.
func propertyLines(page notion.Object) []string {
	names := make([]string, 0, len(page.Properties))
	for name := range page.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		if line, ok := propertyLine(name, page.Properties[name]); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

// newIndex assembles the persisted index for this run.
func (m *Mirror) newIndex(pages, databases map[string]Entry) Index {
	return Index{
		GeneratedAt: m.nowUTC(),
		Pages:       pages,
		Databases:   databases,
	}
}

// atomicReplace publishes the rebuilt tree by swapping directories. Failure
// here is fatal for the run; the previously published mirror is only
// removed immediately before the rename.
func (m *Mirror) atomicReplace(tmpDir, finalDir string) error {
	if exists, _ := afero.DirExists(fs, finalDir); exists {
		if err := fs.RemoveAll(finalDir); err != nil {
			return errors.WithContext(err, "remove old mirror")
		}
	}
	if err := fs.Rename(tmpDir, finalDir); err != nil {
		return errors.WithContext(err, "rename temp dir")
	}
	return nil
}

func (m *Mirror) recordIssue(objectID, blockID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = append(m.issues, AccessIssue{ObjectID: objectID, BlockID: blockID, Err: err})
}

func (m *Mirror) recordedIssues() []AccessIssue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AccessIssue{}, m.issues...)
}

func (m *Mirror) nowUTC() string {
	return m.clock.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}
