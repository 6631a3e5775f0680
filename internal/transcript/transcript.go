package transcript

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/Zuo-Peng/adk-session-viewer/internal/render"
	"github.com/Zuo-Peng/adk-session-viewer/internal/session"
	"github.com/charmbracelet/lipgloss"
)

var styleMarker = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

type Options struct {
	Width    int
	Location *time.Location

	// Selection is the position in the rendered events of the inspected
	// event, used only when HasSelection is set.
	Selection    int
	HasSelection bool
}

// Block is the line span of one rendered event. End is exclusive. Index is
// the event's position in the slice passed to Render.
type Block struct {
	Index      int
	EventID    string
	Start      int
	End        int
	Selectable bool
}

// Order returns the events sorted by timestamp. Events with equal
// timestamps keep their stored order. The input is not modified.
func Order(events []session.Event) []session.Event {
	out := make([]session.Event, 0, len(events))
	for _, i := range order(events) {
		out = append(out, events[i])
	}
	return out
}

// order returns the positions of events in display order.
func order(events []session.Event) []int {
	idx := make([]int, len(events))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(events[a].Timestamp, events[b].Timestamp)
	})
	return idx
}

// Render lays out the events in display order and returns the content with
// the line span of every event.
func Render(events []session.Event, opts Options) (string, []Block) {
	var b strings.Builder
	lineCount := 0
	writeBlock := func(s string) {
		b.WriteString(s)
		b.WriteString("\n")
		lineCount += strings.Count(s, "\n") + 1
	}

	width := opts.Width
	if width <= 0 {
		width = 80
	}
	writeBlock(lipgloss.PlaceHorizontal(width, lipgloss.Center, styleMarker.Render("── Session Start ──")))
	writeBlock("")

	blocks := make([]Block, 0, len(events))
	for _, i := range order(events) {
		ev := events[i]
		selected := opts.HasSelection && i == opts.Selection
		msg := render.Message(ev, render.Options{
			Width:    width,
			Location: opts.Location,
			Selected: selected && !ev.IsUser(),
		})
		start := lineCount
		writeBlock(msg)
		blocks = append(blocks, Block{
			Index:      i,
			EventID:    ev.ID,
			Start:      start,
			End:        lineCount,
			Selectable: !ev.IsUser(),
		})
		writeBlock("") // blank line after message
	}
	return b.String(), blocks
}

// BlockAt returns the block covering the given content line.
func BlockAt(blocks []Block, line int) (Block, bool) {
	for _, blk := range blocks {
		if line >= blk.Start && line < blk.End {
			return blk, true
		}
	}
	return Block{}, false
}

// Next returns the next selectable block after the one for event current,
// moving forward for dir > 0 and backward otherwise. With current < 0 it
// starts from the end nearest to the direction of travel. It wraps around.
func Next(blocks []Block, current int, dir int) (Block, bool) {
	var selectable []Block
	cur := -1
	for _, blk := range blocks {
		if !blk.Selectable {
			continue
		}
		if current >= 0 && blk.Index == current {
			cur = len(selectable)
		}
		selectable = append(selectable, blk)
	}
	if len(selectable) == 0 {
		return Block{}, false
	}
	n := len(selectable)
	switch {
	case cur < 0 && dir > 0:
		return selectable[0], true
	case cur < 0:
		return selectable[n-1], true
	case dir > 0:
		return selectable[(cur+1)%n], true
	default:
		return selectable[(cur-1+n)%n], true
	}
}

// Find returns the block of the event at the given position.
func Find(blocks []Block, index int) (Block, bool) {
	for _, blk := range blocks {
		if blk.Index == index {
			return blk, true
		}
	}
	return Block{}, false
}
