package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Zuo-Peng/adk-session-viewer/internal/session"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
)

// secondsThreshold separates timestamps in seconds from timestamps in
// milliseconds. Values below it are read as seconds. Session files carry no
// unit, so a seconds value past the year 2286 would be misread.
const secondsThreshold = 1e10

const minBubbleWidth = 20

type Options struct {
	Width    int            // width available to the message, bubble takes up to 3/4 of it
	Location *time.Location // nil = time.Local
	Selected bool
}

// EventTime converts an event timestamp to a time, scaling seconds to
// milliseconds when the value is below the threshold.
func EventTime(ts float64) time.Time {
	ms := ts
	if ts < secondsThreshold {
		ms = ts * 1000
	}
	return time.UnixMicro(int64(math.Round(ms * 1000)))
}

// FormatTime renders the time of day of an event timestamp.
func FormatTime(ts float64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return EventTime(ts).In(loc).Format("15:04:05")
}

// AuthorLabel returns the author tag, or a generic label when it is empty.
func AuthorLabel(ev session.Event) string {
	if ev.Author != "" {
		return ev.Author
	}
	if ev.IsUser() {
		return "User"
	}
	return "Agent"
}

// PrettyJSON formats v with two-space indentation. nil renders as "".
func PrettyJSON(v any) string {
	if v == nil {
		return ""
	}
	if m, ok := v.(map[string]any); ok && m == nil {
		return ""
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// Part renders one content part into at most width columns. Inline data and
// unrecognised parts render as "".
func Part(p session.Part, width int) string {
	if width < 1 {
		width = 1
	}
	switch p := p.(type) {
	case session.TextPart:
		return wordwrap.String(p.Text, width)
	case session.FunctionCallPart:
		body := []string{
			styleToolCallLabel.Render("TOOL CALL"),
			styleBold.Render(p.Call.Name),
		}
		if args := PrettyJSON(p.Call.Args); args != "" {
			body = append(body, styleDim.Render(args))
		}
		return styleToolCallBox.Width(max(width-2, 1)).Render(strings.Join(body, "\n"))
	case session.FunctionResponsePart:
		body := []string{
			styleToolReplyLabel.Render("TOOL OUTPUT"),
			styleBold.Render(p.Response.Name),
		}
		if resp := PrettyJSON(p.Response.Response); resp != "" {
			body = append(body, styleDim.Render(resp))
		}
		return styleToolReplyBox.Width(max(width-1, 1)).Render(strings.Join(body, "\n"))
	default:
		// inline data and unknown parts have no visible form
		return ""
	}
}

// Message renders one event as a chat bubble: a header with author and
// time, the rendered parts, and for agent events a footer with the model
// version. User bubbles are right-aligned within opts.Width.
func Message(ev session.Event, opts Options) string {
	width := opts.Width
	if width < minBubbleWidth {
		width = minBubbleWidth
	}
	bubbleW := width * 3 / 4
	if bubbleW < minBubbleWidth {
		bubbleW = minBubbleWidth
	}
	isUser := ev.IsUser()

	// bubble: border (2) + padding (2)
	innerW := bubbleW - 4

	var sections []string
	for _, p := range ev.Content.Parts {
		if out := Part(p, innerW); out != "" {
			sections = append(sections, out)
		}
	}
	if len(ev.Content.Parts) == 0 {
		sections = append(sections, stylePlaceholder.Render("No content"))
	}
	if !isUser {
		sections = append(sections, footer(ev, innerW))
	}

	style := styleAgentBubble
	switch {
	case isUser:
		style = styleUserBubble
	case opts.Selected:
		style = styleSelectedBubble
	}
	bubble := style.Width(bubbleW - 2).Render(strings.Join(sections, "\n\n"))

	label := AuthorLabel(ev)
	ts := styleDim.Render(FormatTime(ev.Timestamp, opts.Location))
	var header string
	if isUser {
		header = ts + " " + styleUserAuthor.Render(label)
	} else {
		header = styleAgentAuthor.Render(label) + " " + ts
	}

	pos := lipgloss.Left
	if isUser {
		pos = lipgloss.Right
	}
	block := lipgloss.JoinVertical(pos, header, bubble)
	return lipgloss.PlaceHorizontal(width, pos, block)
}

func footer(ev session.Event, width int) string {
	left := ev.ModelVersion
	if left == "" {
		left = "Assistant"
	}
	right := "details >"
	gap := width - runewidth.StringWidth(left) - runewidth.StringWidth(right)
	if gap < 1 {
		left = runewidth.Truncate(left, max(width-runewidth.StringWidth(right)-1, 0), "…")
		gap = 1
	}
	return styleDim.Render(strings.ToUpper(left) + strings.Repeat(" ", gap) + right)
}
