package inspect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Zuo-Peng/adk-session-viewer/internal/session"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// CopyFeedback is how long the copy confirmation stays visible.
const CopyFeedback = 2 * time.Second

// signatureLines is how many panel lines a collapsed thought signature takes.
const signatureLines = 4

var (
	styleSection = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	styleLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	styleValue   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	stylePrompt  = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	styleReply   = lipgloss.NewStyle().Foreground(lipgloss.Color("36")).Bold(true)
	styleTotal   = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Bold(true)
	styleRaw     = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	styleCopied  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

type Options struct {
	Width           int
	ExpandSignature bool
	Copied          bool // show the copy confirmation instead of the copy hint
}

// Clipboard receives copied records.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// RawJSON returns the full event record indented by two spaces. Parsed
// events are indented from their source bytes so string contents stay as
// written; <, > and & are never escaped.
func RawJSON(ev session.Event) (string, error) {
	data := []byte(ev.Raw())
	if data == nil {
		var enc bytes.Buffer
		e := json.NewEncoder(&enc)
		e.SetEscapeHTML(false)
		if err := e.Encode(ev); err != nil {
			return "", fmt.Errorf("encode event: %w", err)
		}
		data = enc.Bytes()
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", fmt.Errorf("indent event: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// Copy places the full event record on the clipboard.
func Copy(ev session.Event, cb Clipboard) error {
	text, err := RawJSON(ev)
	if err != nil {
		return err
	}
	return cb.WriteAll(text)
}

// Render draws the detail panel for one event.
func Render(ev session.Event, opts Options) string {
	width := opts.Width
	if width < 20 {
		width = 20
	}

	var sections []string

	sections = append(sections, field("ID", ev.ID, width), field("AUTHOR", ev.Author, width))

	if u := ev.Usage; u != nil {
		sections = append(sections, styleSection.Render("TOKEN USAGE")+"\n"+
			stylePrompt.Render(fmt.Sprintf("%d", u.PromptTokenCount))+styleLabel.Render(" prompt  ")+
			styleReply.Render(fmt.Sprintf("%d", u.CandidatesTokenCount))+styleLabel.Render(" response  ")+
			styleTotal.Render(fmt.Sprintf("%d", u.TotalTokenCount))+styleLabel.Render(" total"))
	}

	if sig := ev.Content.ThoughtSignature; sig != "" {
		hint := "[s] expand"
		if opts.ExpandSignature {
			hint = "[s] collapse"
		} else {
			sig = runewidth.Truncate(sig, width*signatureLines, "…")
		}
		sections = append(sections, styleSection.Render("THOUGHT SIGNATURE")+" "+styleLabel.Render(hint)+"\n"+
			styleLabel.Render(breakAll(sig, width)))
	}

	copyHint := styleLabel.Render("[c] copy")
	if opts.Copied {
		copyHint = styleCopied.Render("✓ copied")
	}
	raw, err := RawJSON(ev)
	if err != nil {
		raw = err.Error()
	}
	sections = append(sections, styleSection.Render("RAW JSON")+" "+copyHint+"\n"+styleRaw.Render(raw))

	return strings.Join(sections, "\n\n")
}

func field(label, value string, width int) string {
	return styleLabel.Render(label) + "\n" + styleValue.Render(breakAll(value, width))
}

// breakAll hard-wraps s every width columns, ignoring word boundaries.
func breakAll(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if col+rw > width {
			b.WriteString("\n")
			col = 0
		}
		b.WriteRune(r)
		col += rw
	}
	return b.String()
}
