// Package markdown renders Notion rich text and content blocks as Markdown
// lines. Rendering is pure: fetching nested blocks is the caller's job.
package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/notion"
)

// RichText renders annotated text spans as inline Markdown.
func RichText(spans []notion.RichText) string {
	var parts []string
	for _, span := range spans {
		text := strings.ReplaceAll(span.PlainText, "\r\n", "\n")
		if span.Annotations.Code {
			text = "`" + text + "`"
		}
		if span.Annotations.Bold {
			text = "**" + text + "**"
		}
		if span.Annotations.Italic {
			text = "*" + text + "*"
		}
		if span.Annotations.Strikethrough {
			text = "~~" + text + "~~"
		}
		if span.Annotations.Underline {
			text = "<u>" + text + "</u>"
		}
		if span.Href != "" {
			text = fmt.Sprintf("[%s](%s)", text, span.Href)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "")
}

// Indent returns the list indentation for the given nesting depth.
func Indent(depth int) string {
	if depth < 0 {
		depth = 0
	}
	return strings.Repeat("  ", depth)
}

var codeLanguagePattern = regexp.MustCompile(`^[a-z0-9_+-]+$`)

// safeCodeLanguage keeps only language tags that are safe to put after a
// code fence.
func safeCodeLanguage(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if codeLanguagePattern.MatchString(lang) {
		return lang
	}
	return ""
}

// Block renders one block as Markdown lines at the given nesting depth.
// Children are not rendered; callers fetch and render them separately.
func Block(b notion.Block, depth int) []string {
	prefix := Indent(depth)

	if body := blockText(b); body != nil {
		text := RichText(body.RichText)
		switch b.Type {
		case "paragraph":
			return []string{prefix + text}
		case "heading_1":
			return []string{prefix + "# " + text}
		case "heading_2":
			return []string{prefix + "## " + text}
		case "heading_3":
			return []string{prefix + "### " + text}
		case "quote":
			return []string{prefix + "> " + text}
		case "callout":
			icon := ""
			if body.Icon != nil && body.Icon.Type == "emoji" {
				icon = body.Icon.Emoji + " "
			}
			return []string{prefix + "> " + icon + text}
		case "bulleted_list_item", "toggle":
			return []string{prefix + "- " + text}
		case "numbered_list_item":
			return []string{prefix + "1. " + text}
		case "to_do":
			check := " "
			if body.Checked {
				check = "x"
			}
			return []string{prefix + fmt.Sprintf("- [%s] ", check) + text}
		}
	}

	switch b.Type {
	case "code":
		return codeLines(b, prefix)
	case "divider":
		return []string{prefix + "---"}
	case "image", "file", "pdf", "video", "audio":
		return fileLines(b, prefix)
	case "bookmark":
		if b.Bookmark == nil {
			return []string{prefix + "bookmark"}
		}
		label := RichText(b.Bookmark.Caption)
		if label == "" {
			label = b.Bookmark.URL
		}
		if b.Bookmark.URL == "" {
			if label == "" {
				label = "bookmark"
			}
			return []string{prefix + label}
		}
		return []string{prefix + fmt.Sprintf("[%s](%s)", label, b.Bookmark.URL)}
	case "equation":
		expr := ""
		if b.Equation != nil {
			expr = b.Equation.Expression
		}
		return []string{prefix + fmt.Sprintf("$$\n%s\n$$", expr)}
	case "child_page":
		title := "child page"
		if b.ChildPage != nil && b.ChildPage.Title != "" {
			title = b.ChildPage.Title
		}
		return []string{prefix + "- " + title}
	case "child_database":
		title := "child database"
		if b.ChildDatabase != nil && b.ChildDatabase.Title != "" {
			title = b.ChildDatabase.Title
		}
		return []string{prefix + "- " + title}
	}

	// Keep something for unknown types.
	return []string{prefix + fmt.Sprintf("- (unsupported block: %s)", b.Type)}
}

// blockText returns the shared text body for text-bearing block types.
func blockText(b notion.Block) *notion.BlockText {
	switch b.Type {
	case "paragraph":
		return orEmpty(b.Paragraph)
	case "heading_1":
		return orEmpty(b.Heading1)
	case "heading_2":
		return orEmpty(b.Heading2)
	case "heading_3":
		return orEmpty(b.Heading3)
	case "quote":
		return orEmpty(b.Quote)
	case "callout":
		return orEmpty(b.Callout)
	case "bulleted_list_item":
		return orEmpty(b.BulletedListItem)
	case "numbered_list_item":
		return orEmpty(b.NumberedListItem)
	case "to_do":
		return orEmpty(b.ToDo)
	case "toggle":
		return orEmpty(b.Toggle)
	}
	return nil
}

func orEmpty(body *notion.BlockText) *notion.BlockText {
	if body == nil {
		return &notion.BlockText{}
	}
	return body
}

func codeLines(b notion.Block, prefix string) []string {
	code := b.Code
	if code == nil {
		code = &notion.CodeBlock{}
	}

	lines := []string{strings.TrimRight(prefix+"```"+safeCodeLanguage(code.Language), " ")}
	for _, line := range strings.Split(notion.PlainText(code.RichText), "\n") {
		if line == "" {
			lines = append(lines, prefix)
		} else {
			lines = append(lines, prefix+line)
		}
	}
	return append(lines, prefix+"```")
}

func fileLines(b notion.Block, prefix string) []string {
	var body notion.FileBlock
	switch b.Type {
	case "image":
		if b.Image != nil {
			body = *b.Image
		}
	case "file":
		if b.File != nil {
			body = *b.File
		}
	case "pdf":
		if b.PDF != nil {
			body = *b.PDF
		}
	case "video":
		if b.Video != nil {
			body = *b.Video
		}
	case "audio":
		if b.Audio != nil {
			body = *b.Audio
		}
	}

	label := RichText(body.Caption)
	if label == "" {
		label = b.Type
	}
	return []string{prefix + fmt.Sprintf("[%s](%s)", label, body.URLString())}
}
