package mirror

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/errors"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/notion"
)

// fakeSource is an in-memory Source. Tests mutate its maps between runs to
// simulate edits, moves, and deletions upstream.
type fakeSource struct {
	mu        sync.Mutex
	pages     map[string]notion.Object
	databases map[string]notion.Object
	blocks    map[string][]notion.Block
	entries   map[string][]string

	searchErr error
	pageErrs  map[string]error
	blockErrs map[string]error
}

var _ Source = (*fakeSource)(nil)

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages:     map[string]notion.Object{},
		databases: map[string]notion.Object{},
		blocks:    map[string][]notion.Block{},
		entries:   map[string][]string{},
		pageErrs:  map[string]error{},
		blockErrs: map[string]error{},
	}
}

func (s *fakeSource) addPage(page notion.Object, blocks ...notion.Block) {
	s.pages[page.ID] = page
	s.blocks[page.ID] = blocks
}

func (s *fakeSource) addDatabase(db notion.Object, entryIDs ...string) {
	s.databases[db.ID] = db
	s.entries[db.ID] = entryIDs
}

func (s *fakeSource) SearchPages() ([]notion.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.searchErr != nil {
		return nil, s.searchErr
	}

	var pages []notion.Object
	for _, id := range sortedKeys(s.pages) {
		pages = append(pages, s.pages[id])
	}
	return pages, nil
}

func (s *fakeSource) SearchDatabases() ([]notion.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.searchErr != nil {
		return nil, s.searchErr
	}

	var databases []notion.Object
	for _, id := range sortedKeys(s.databases) {
		databases = append(databases, s.databases[id])
	}
	return databases, nil
}

func (s *fakeSource) GetPage(id string) (notion.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pageErrs[id]; err != nil {
		return notion.Object{}, err
	}
	page, ok := s.pages[id]
	if !ok {
		return notion.Object{}, errors.New("page not found")
	}
	return page, nil
}

func (s *fakeSource) GetDatabase(id string) (notion.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, ok := s.databases[id]
	if !ok {
		return notion.Object{}, errors.New("database not found")
	}
	return db, nil
}

func (s *fakeSource) QueryDatabase(id string) ([]notion.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []notion.Object
	for _, pageID := range s.entries[id] {
		if page, ok := s.pages[pageID]; ok {
			entries = append(entries, page)
		}
	}
	return entries, nil
}

func (s *fakeSource) ListBlockChildren(id string) ([]notion.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blockErrs[id]; err != nil {
		return nil, err
	}
	return s.blocks[id], nil
}

func paragraph(id, text string) notion.Block {
	return notion.Block{
		ID:   id,
		Type: "paragraph",
		Paragraph: &notion.BlockText{
			RichText: []notion.RichText{{PlainText: text}},
		},
	}
}

// scenarioSource builds the baseline workspace: one database with one entry
// page, plus a top-level workspace page.
func scenarioSource() *fakeSource {
	source := newFakeSource()
	source.addDatabase(testDatabase("d1", "Tasks"), "p1")

	task := testPage("p1", "Buy milk", notion.Parent{
		Type:       notion.ParentDatabase,
		DatabaseID: "d1",
	})
	task.LastEditedTime = "t1"
	source.addPage(task, paragraph("blk1", "Remember the milk"))

	home := testPage("w1", "Home", notion.Parent{Type: notion.ParentWorkspace})
	home.LastEditedTime = "t1"
	source.addPage(home)
	return source
}

func newTestMirror(source Source, dir string) *Mirror {
	clock := clockwork.NewFakeClockAt(
		time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	return New(source, dir, Params{Concurrency: 2, Clock: clock})
}

func readMirrorFile(t *testing.T, dir, relPath string) string {
	data, err := afero.ReadFile(fs, filepath.Join(dir, filepath.FromSlash(relPath)))
	require.NoError(t, err, "reading %s", relPath)
	return string(data)
}

func mirrorFileExists(t *testing.T, dir, relPath string) bool {
	exists, err := afero.Exists(fs, filepath.Join(dir, filepath.FromSlash(relPath)))
	require.NoError(t, err)
	return exists
}

func TestFullRebuild(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mirror")
	source := scenarioSource()

	result, err := newTestMirror(source, dir).Build(false)
	require.NoError(t, err)
	assert.Equal(t, dir, result.LocalDir)
	assert.Equal(t, 2, result.PagesWritten)
	assert.Equal(t, 1, result.DatabasesWritten)
	assert.Empty(t, result.Issues)

	page := readMirrorFile(t, dir, "DB_Tasks_d1/Buy_milk_p1.md")
	assert.Contains(t, page, "# Buy milk")
	assert.Contains(t, page, "Remember the milk")
	assert.Contains(t, page, "last_edited_time: t1")
	assert.Contains(t, page, "mirror_generated_at: 2026-01-02T03:04:05Z")

	dbIndex := readMirrorFile(t, dir, "DB_Tasks_d1/__database.md")
	assert.Contains(t, dbIndex, "# Tasks")
	assert.Contains(t, dbIndex, "- [Buy milk](Buy_milk_p1.md)")

	assert.True(t, mirrorFileExists(t, dir, "_workspace/Home_w1.md"))
	assert.True(t, mirrorFileExists(t, dir, rootIndexName))

	index := loadIndex(dir)
	assert.Equal(t, Entry{LastEditedTime: "t1", Path: "DB_Tasks_d1/Buy_milk_p1.md"},
		index.Pages["p1"])
	assert.Equal(t, Entry{LastEditedTime: "t1", Path: "DB_Tasks_d1/__database.md"},
		index.Databases["d1"])

	// The staging directory must be gone after publishing.
	tmpExists, err := afero.DirExists(fs, dir+".tmp")
	require.NoError(t, err)
	assert.False(t, tmpExists)
}

func TestIncrementalSkipsUnchanged(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mirror")
	source := scenarioSource()

	_, err := newTestMirror(source, dir).Build(false)
	require.NoError(t, err)

	result, err := newTestMirror(source, dir).Build(true)
	require.NoError(t, err)
	assert.Zero(t, result.PagesWritten)
	assert.Zero(t, result.DatabasesWritten)
}

func TestIncrementalRewritesChangedPage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mirror")
	source := scenarioSource()

	_, err := newTestMirror(source, dir).Build(false)
	require.NoError(t, err)

	edited := source.pages["p1"]
	edited.LastEditedTime = "t2"
	source.addPage(edited, paragraph("blk1", "Remember the oat milk"))

	result, err := newTestMirror(source, dir).Build(true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PagesWritten)
	assert.Zero(t, result.DatabasesWritten)

	page := readMirrorFile(t, dir, "DB_Tasks_d1/Buy_milk_p1.md")
	assert.Contains(t, page, "Remember the oat milk")

	index := loadIndex(dir)
	assert.Equal(t, "t2", index.Pages["p1"].LastEditedTime)
}

func TestIncrementalRelocatesMovedPage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mirror")
	source := scenarioSource()

	_, err := newTestMirror(source, dir).Build(false)
	require.NoError(t, err)

	moved := source.pages["p1"]
	moved.Parent = notion.Parent{Type: notion.ParentWorkspace}
	source.pages["p1"] = moved
	source.entries["d1"] = nil

	result, err := newTestMirror(source, dir).Build(true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PagesWritten)

	assert.False(t, mirrorFileExists(t, dir, "DB_Tasks_d1/Buy_milk_p1.md"))
	assert.True(t, mirrorFileExists(t, dir, "_workspace/Buy_milk_p1.md"))

	index := loadIndex(dir)
	assert.Equal(t, "_workspace/Buy_milk_p1.md", index.Pages["p1"].Path)
}

func TestIncrementalRemovesDeletedPage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mirror")
	source := scenarioSource()

	_, err := newTestMirror(source, dir).Build(false)
	require.NoError(t, err)

	delete(source.pages, "w1")

	_, err = newTestMirror(source, dir).Build(true)
	require.NoError(t, err)

	assert.False(t, mirrorFileExists(t, dir, "_workspace/Home_w1.md"))

	// The bucket directory only held the one page, so it's pruned.
	dirExists, err := afero.DirExists(fs, filepath.Join(dir, workspaceDir))
	require.NoError(t, err)
	assert.False(t, dirExists)

	index := loadIndex(dir)
	assert.NotContains(t, index.Pages, "w1")
}

func TestArchivedObjectsExcluded(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mirror")
	source := scenarioSource()

	archived := testPage("z1", "Trashed", notion.Parent{Type: notion.ParentWorkspace})
	archived.Archived = true
	source.addPage(archived)

	result, err := newTestMirror(source, dir).Build(false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.PagesWritten)

	assert.False(t, mirrorFileExists(t, dir, "_workspace/Trashed_z1.md"))
	index := loadIndex(dir)
	assert.NotContains(t, index.Pages, "z1")
}

func TestDiscoveryFailureKeepsPublishedMirror(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mirror")
	source := scenarioSource()

	_, err := newTestMirror(source, dir).Build(false)
	require.NoError(t, err)

	source.searchErr = errors.New("connection reset")
	_, err = newTestMirror(source, dir).Build(false)
	require.Error(t, err)

	// The previously published tree is untouched.
	assert.True(t, mirrorFileExists(t, dir, "DB_Tasks_d1/Buy_milk_p1.md"))
	assert.True(t, mirrorFileExists(t, dir, "_workspace/Home_w1.md"))
}

func TestBlockListingFailureIsSoft(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mirror")
	source := scenarioSource()
	source.blockErrs["p1"] = errors.New("access denied")

	result, err := newTestMirror(source, dir).Build(false)
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "p1", result.Issues[0].ObjectID)

	page := readMirrorFile(t, dir, "DB_Tasks_d1/Buy_milk_p1.md")
	assert.Contains(t, page, "content not accessible")

	report := readMirrorFile(t, dir, accessReportName)
	assert.Contains(t, report, "Buy_milk (p1)")
	assert.Contains(t, report, "access denied")
}

func TestHydrationFailureKeepsDiscoveryRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mirror")
	source := scenarioSource()
	source.pageErrs["w1"] = errors.New("service unavailable")

	result, err := newTestMirror(source, dir).Build(false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.PagesWritten)

	// The page is still mirrored from its discovery-time metadata.
	page := readMirrorFile(t, dir, "_workspace/Home_w1.md")
	assert.Contains(t, page, "# Home")
}

func TestNestedBlocksRendered(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mirror")
	source := scenarioSource()

	toggle := notion.Block{
		ID:          "tg1",
		Type:        "toggle",
		HasChildren: true,
		Toggle: &notion.BlockText{
			RichText: []notion.RichText{{PlainText: "Details"}},
		},
	}
	page := source.pages["w1"]
	source.addPage(page, toggle)
	source.blocks["tg1"] = []notion.Block{paragraph("tg1-c1", "hidden note")}

	_, err := newTestMirror(source, dir).Build(false)
	require.NoError(t, err)

	content := readMirrorFile(t, dir, "_workspace/Home_w1.md")
	assert.Contains(t, content, "- Details")
	assert.Contains(t, content, "  hidden note")
}
