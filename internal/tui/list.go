package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Zuo-Peng/adk-session-viewer/internal/loader"
	"github.com/Zuo-Peng/adk-session-viewer/internal/scan"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// linesPerItem is the number of terminal lines each entry occupies.
const linesPerItem = 2

type listItem struct {
	title string
	meta  string
}

func localItems(root string, files []scan.FileInfo) []listItem {
	items := make([]listItem, len(files))
	for i, f := range files {
		title := f.Path
		if rel, err := filepath.Rel(root, f.Path); err == nil {
			title = rel
		}
		items[i] = listItem{
			title: title,
			meta:  fmt.Sprintf("%s  %s", time.Unix(f.Mtime, 0).Format("2006-01-02 15:04"), formatSize(f.Size)),
		}
	}
	return items
}

func remoteItems(files []loader.RemoteFile) []listItem {
	items := make([]listItem, len(files))
	for i, f := range files {
		meta := f.ID
		if !f.ModifiedTime.IsZero() {
			meta = f.ModifiedTime.Local().Format("2006-01-02 15:04") + "  " + meta
		}
		if f.Size > 0 {
			meta += "  " + formatSize(f.Size)
		}
		items[i] = listItem{title: f.Name, meta: meta}
	}
	return items
}

// filterFiles keeps files whose path contains every word of filter,
// case-insensitively.
func filterFiles(files []scan.FileInfo, filter string) []scan.FileInfo {
	words := strings.Fields(strings.ToLower(filter))
	if len(words) == 0 {
		return files
	}
	var out []scan.FileInfo
	for _, f := range files {
		p := strings.ToLower(f.Path)
		match := true
		for _, w := range words {
			if !strings.Contains(p, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, f)
		}
	}
	return out
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// renderList renders a scrolling list of entries.
func renderList(items []listItem, cursor, offset, width, height int, empty string) string {
	if len(items) == 0 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(empty)
	}

	var lines []string
	for i, it := range items {
		if i < offset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		lines = append(lines, formatItem(it, width, i == cursor)...)
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// formatItem formats one entry as two lines:
//
//	line 1: [>] name
//	line 2:    modified  size (dimmed)
func formatItem(it listItem, width int, selected bool) []string {
	titleMax := max(width-2, 0)
	title := strings.ReplaceAll(it.title, "\n", " ")
	if runewidth.StringWidth(title) > titleMax {
		title = runewidth.Truncate(title, titleMax, "…")
	}
	line1 := "  " + title
	if selected {
		line1 = styleListSelected.Render("> " + title)
	}

	metaMax := max(width-4, 0)
	meta := it.meta
	if runewidth.StringWidth(meta) > metaMax {
		meta = runewidth.Truncate(meta, metaMax, "")
	}
	line2 := "    " + styleListMeta.Render(meta)
	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := max(listHeight/linesPerItem, 1)
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
