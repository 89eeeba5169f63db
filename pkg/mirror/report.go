package mirror

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/errors"
)

const (
	rootIndexName    = "index.md"
	accessReportName = "access_issues.txt"
)

// AccessIssue records a soft failure scoped to one object or block. Issues
// are reported so operators can tell access-denied conditions apart from
// transient network problems, but they never fail the run.
type AccessIssue struct {
	ObjectID string
	BlockID  string
	Err      error
}

// writeRootIndex writes the top-level index.md describing the mirror.
func (m *Mirror) writeRootIndex(root string, pageCount, dbCount int) error {
	lines := []string{
		"# Notion Mirror",
		"",
		"- Generated: " + m.nowUTC(),
		fmt.Sprintf("- Pages: %d", pageCount),
		fmt.Sprintf("- Databases: %d", dbCount),
		"",
		"## Top-level folders",
		"",
		"- `" + workspaceDir + "/` workspace pages",
		"- `DB_*` databases",
		"- `" + orphansDir + "/` missing parents",
		"- `" + otherDir + "/` unknown parent types",
		"",
	}

	path := filepath.Join(root, rootIndexName)
	if err := afero.WriteFile(fs, path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return errors.WithContext(err, "write root index")
	}
	return nil
}

// writeAccessReport writes the human-readable soft failure report. Nothing
// is written when the run had no issues.
func (m *Mirror) writeAccessReport(root string) error {
	issues := m.recordedIssues()
	if len(issues) == 0 {
		return nil
	}

	lines := []string{
		"Notion access report",
		"Generated: " + m.nowUTC(),
		"",
		"Objects not accessible (likely not shared with integration):",
		"",
	}
	for _, issue := range issues {
		page, _ := m.cache.page(issue.ObjectID)
		title := SafeName(page.DisplayTitle(), "page")
		lines = append(lines,
			fmt.Sprintf("- page: %s (%s)", title, issue.ObjectID),
			fmt.Sprintf("  block: %s", issue.BlockID),
			fmt.Sprintf("  error: %s", issue.Err),
		)
	}

	path := filepath.Join(root, accessReportName)
	if err := afero.WriteFile(fs, path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return errors.WithContext(err, "write access report")
	}
	return nil
}
