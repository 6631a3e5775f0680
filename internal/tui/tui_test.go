package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Zuo-Peng/adk-session-viewer/internal/history"
	"github.com/Zuo-Peng/adk-session-viewer/internal/loader"
	"github.com/Zuo-Peng/adk-session-viewer/internal/scan"
	"github.com/Zuo-Peng/adk-session-viewer/internal/session"
	"github.com/Zuo-Peng/adk-session-viewer/internal/state"
	"github.com/Zuo-Peng/adk-session-viewer/internal/transcript"
	tea "github.com/charmbracelet/bubbletea"
)

const sampleDoc = `{
  "id": "sess-1",
  "appName": "travel_agent",
  "userId": "u-42",
  "events": [
    {"id": "u1", "timestamp": 1700000001, "author": "user", "content": {"role": "user", "parts": [{"text": "plan a trip"}]}},
    {"id": "a1", "timestamp": 1700000002, "author": "planner", "content": {"role": "model", "parts": [{"text": "where to?"}]}},
    {"id": "u2", "timestamp": 1700000003, "author": "user", "content": {"role": "user", "parts": [{"text": "Kyoto"}]}},
    {"id": "a2", "timestamp": 1700000004, "author": "planner", "content": {"role": "model", "parts": [{"text": "booked"}]}}
  ]
}`

type fakeClipboard struct {
	text string
	err  error
}

func (f *fakeClipboard) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.text = text
	return nil
}

func newTestModel(t *testing.T, opts Options) model {
	t.Helper()
	if opts.Loader == nil {
		opts.Loader = loader.New(nil, nil)
	}
	if opts.Clipboard == nil {
		opts.Clipboard = &fakeClipboard{}
	}
	if opts.Root == "" {
		opts.Root = t.TempDir()
	}
	opts.Location = time.UTC
	return update(t, initialModel(opts), tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
)

func selectedID(m model) string {
	if ev, ok := m.st.Selected(); ok {
		return ev.ID
	}
	return ""
}

func parseSample(t *testing.T) *session.Session {
	t.Helper()
	sess, err := session.Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return sess
}

func loaded(t *testing.T, opts Options) model {
	t.Helper()
	m := newTestModel(t, opts)
	return update(t, m, loadDoneMsg{
		src:  state.Source{Kind: state.SourceLocal, Ref: "/tmp/sample.json"},
		sess: parseSample(t),
	})
}

func TestLoadSuccessShowsTranscript(t *testing.T) {
	db, err := history.OpenDB(filepath.Join(t.TempDir(), "h.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	m := loaded(t, Options{History: db})
	if m.mode != modeTranscript {
		t.Fatalf("mode = %v", m.mode)
	}
	if len(m.blocks) != 4 {
		t.Fatalf("blocks = %+v", m.blocks)
	}
	view := m.View()
	for _, want := range []string{"ADK Session Viewer", "travel_agent", "u-42", "Session Start", "booked"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	last, err := db.Last()
	if err != nil || last == nil {
		t.Fatalf("history not recorded: %v", err)
	}
	if last.Source != history.SourceLocal || last.Ref != "/tmp/sample.json" || last.SessionID != "sess-1" || last.EventCount != 4 {
		t.Fatalf("recorded %+v", last)
	}
}

func TestLoadFailureKeepsSession(t *testing.T) {
	m := loaded(t, Options{})
	m = update(t, m, runes("n"))
	prev := m.st.Session

	m.st = m.st.LoadStarted()
	m = update(t, m, loadDoneMsg{
		src: state.Source{Kind: state.SourceDrive, Ref: "missing"},
		err: &loader.TransportError{Status: 404},
	})
	if m.st.Session != prev || selectedID(m) != "a1" {
		t.Fatalf("failed load replaced state: %+v", m.st)
	}
	if m.st.Loading {
		t.Fatal("loading flag should be cleared")
	}
	if !strings.Contains(m.statusBar(), "HTTP 404") {
		t.Fatalf("status bar should show the error: %q", m.statusBar())
	}
}

func TestLoadTriggerIgnoredWhileLoading(t *testing.T) {
	m := newTestModel(t, Options{})
	m, cmd := m.startLoad(state.Source{Kind: state.SourceLocal, Ref: "a.json"})
	if cmd == nil || !m.st.Loading {
		t.Fatal("first trigger should start a load")
	}
	m, cmd = m.startLoad(state.Source{Kind: state.SourceLocal, Ref: "b.json"})
	if cmd != nil {
		t.Fatal("second trigger should be ignored while loading")
	}
	if _, cmd = m.startDriveList(); cmd != nil {
		t.Fatal("drive trigger should be ignored while loading")
	}
}

func TestKeyboardSelectionSkipsUserEvents(t *testing.T) {
	m := loaded(t, Options{})
	steps := []struct {
		key  tea.KeyMsg
		want string
	}{
		{runes("n"), "a1"},
		{runes("n"), "a2"},
		{runes("n"), "a1"},
		{runes("p"), "a2"},
		{escKey, ""},
	}
	for i, s := range steps {
		m = update(t, m, s.key)
		if got := selectedID(m); got != s.want {
			t.Fatalf("step %d: selected %q, want %q", i, got, s.want)
		}
	}
}

func TestSelectionOpensDetail(t *testing.T) {
	m := loaded(t, Options{})
	m = update(t, m, runes("n"))
	view := m.View()
	for _, want := range []string{"RAW JSON", "planner"} {
		if !strings.Contains(view, want) {
			t.Fatalf("detail panel missing %q:\n%s", want, view)
		}
	}
}

func TestSelectAgentEventWithoutID(t *testing.T) {
	sess, err := session.Parse([]byte(`{"events":[
		{"timestamp":1700000001,"author":"user","content":{"parts":[{"text":"hi"}]}},
		{"timestamp":1700000002,"author":"planner","content":{"parts":[{"text":"anonymous reply"}]}}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	m := newTestModel(t, Options{})
	m = update(t, m, loadDoneMsg{src: state.Source{Kind: state.SourceLocal, Ref: "/tmp/x.json"}, sess: sess})

	m = update(t, m, runes("n"))
	ev, ok := m.st.Selected()
	if !ok || ev.Author != "planner" {
		t.Fatalf("agent event without id should be selectable: %+v %v", ev, ok)
	}
	if !strings.Contains(m.View(), "RAW JSON") {
		t.Fatalf("detail panel should open:\n%s", m.View())
	}
}

func click(t *testing.T, m model, id string) model {
	t.Helper()
	var blk transcript.Block
	ok := false
	for _, b := range m.blocks {
		if b.EventID == id {
			blk, ok = b, true
			break
		}
	}
	if !ok {
		t.Fatalf("no block for %s", id)
	}
	m.transcript.SetYOffset(blk.Start)
	y := 2 + blk.Start - m.transcript.YOffset
	return update(t, m, tea.MouseMsg{X: 5, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
}

func TestMouseSelection(t *testing.T) {
	m := loaded(t, Options{})
	m = click(t, m, "a2")
	if got := selectedID(m); got != "a2" {
		t.Fatalf("click on agent event: selected %q", got)
	}
	m = click(t, m, "u1")
	if got := selectedID(m); got != "a2" {
		t.Fatalf("click on user event should be a no-op, selected %q", got)
	}
}

func TestCopyFeedback(t *testing.T) {
	cb := &fakeClipboard{}
	m := loaded(t, Options{Clipboard: cb})

	next, cmd := m.Update(runes("c"))
	m = next.(model)
	if cmd != nil || m.copied {
		t.Fatal("copy without a selection should do nothing")
	}

	m = update(t, m, runes("n"))
	next, cmd = m.Update(runes("c"))
	m = next.(model)
	if cmd == nil || !m.copied {
		t.Fatal("copy should show confirmation and schedule its reset")
	}
	if !strings.Contains(cb.text, `"id": "a1"`) {
		t.Fatalf("clipboard = %q", cb.text)
	}
	if !strings.Contains(m.detail.View(), "copied") {
		t.Fatalf("detail should show confirmation:\n%s", m.detail.View())
	}

	// a second copy restarts the window; the first timer is stale
	m = update(t, m, runes("c"))
	m = update(t, m, copyResetMsg{seq: m.copySeq - 1})
	if !m.copied {
		t.Fatal("stale reset should not clear the confirmation")
	}
	m = update(t, m, copyResetMsg{seq: m.copySeq})
	if m.copied {
		t.Fatal("reset should clear the confirmation")
	}
}

func TestCopyFailureShowsNoConfirmation(t *testing.T) {
	m := loaded(t, Options{Clipboard: &fakeClipboard{err: errors.New("no clipboard")}})
	m = update(t, m, runes("n"))
	next, cmd := m.Update(runes("c"))
	m = next.(model)
	if cmd != nil || m.copied {
		t.Fatal("failed copy should not confirm")
	}
	if m.st.Err != nil {
		t.Fatal("failed copy is not an application error")
	}
}

func TestSignatureToggle(t *testing.T) {
	m := loaded(t, Options{})
	m = update(t, m, runes("s"))
	if m.expandSig {
		t.Fatal("toggle without selection should do nothing")
	}
	m = update(t, m, runes("n"))
	m = update(t, m, runes("s"))
	if !m.expandSig {
		t.Fatal("signature should expand")
	}
	m = update(t, m, runes("n"))
	if m.expandSig {
		t.Fatal("selecting another event collapses the signature")
	}
}

func TestDriveWithoutConfiguration(t *testing.T) {
	m := loaded(t, Options{Loader: loader.New(nil, []string{"ASV_DRIVE_API_KEY"})})
	m, cmd := m.startDriveList()
	if cmd == nil || !m.st.Loading {
		t.Fatal("drive trigger should start")
	}
	msg := listRemoteCmd(m.opts.Loader)()
	m = update(t, m, msg)

	var ce *loader.ConfigurationError
	if !errors.As(m.st.Err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", m.st.Err)
	}
	if m.st.Loading || m.mode != modeTranscript || !m.st.HasSession() {
		t.Fatalf("unexpected state after configuration error: %+v mode %v", m.st, m.mode)
	}
}

func TestDrivePickerCancelLeavesState(t *testing.T) {
	m := loaded(t, Options{})
	m = update(t, m, runes("n"))
	before := m.st

	m.st = m.st.LoadStarted()
	m = update(t, m, driveListMsg{files: []loader.RemoteFile{{ID: "f1", Name: "run.json"}}})
	if m.mode != modeDrive || m.st.Loading {
		t.Fatalf("picker should be open: mode %v loading %v", m.mode, m.st.Loading)
	}
	if !strings.Contains(m.View(), "run.json") {
		t.Fatalf("picker should list files:\n%s", m.View())
	}

	m = update(t, m, escKey)
	if m.mode != modeTranscript {
		t.Fatalf("cancel should return to the transcript, mode %v", m.mode)
	}
	if m.st != before {
		t.Fatalf("cancel changed state: %+v vs %+v", m.st, before)
	}
}

func TestDrivePickerEnterStartsRemoteLoad(t *testing.T) {
	m := loaded(t, Options{})
	m = update(t, m, driveListMsg{files: []loader.RemoteFile{{ID: "f1", Name: "run.json"}}})
	next, cmd := m.Update(enterKey)
	m = next.(model)
	if cmd == nil || !m.st.Loading || m.mode != modeTranscript {
		t.Fatalf("enter should start loading and close the picker: %+v mode %v", m.st, m.mode)
	}
}

func TestCloseResets(t *testing.T) {
	m := loaded(t, Options{})
	m = update(t, m, runes("n"))
	m = update(t, m, runes("x"))
	if m.mode != modeChooser || m.st.HasSession() || m.st.HasSelection || m.st.Source.Kind != state.SourceNone {
		t.Fatalf("close should reset everything: %+v mode %v", m.st, m.mode)
	}
	if m.filterInput.Value() != "" || len(m.blocks) != 0 {
		t.Fatal("file input and transcript should be cleared")
	}
}

func TestChooserFilterAndLoad(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "runs", "kyoto.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	m := newTestModel(t, Options{Root: root})
	m = update(t, m, filesMsg{files: []scan.FileInfo{
		{Path: filepath.Join(root, "other.json")},
		{Path: path},
	}})
	if len(m.shown) != 2 {
		t.Fatalf("shown = %+v", m.shown)
	}

	for _, r := range "kyo" {
		m = update(t, m, runes(string(r)))
	}
	if len(m.shown) != 1 || m.shown[0].Path != path {
		t.Fatalf("filter result = %+v", m.shown)
	}

	next, cmd := m.Update(enterKey)
	m = next.(model)
	if cmd == nil || !m.st.Loading {
		t.Fatal("enter should start loading")
	}

	msg := loadCmd(m.opts.Loader, state.Source{Kind: state.SourceLocal, Ref: path})()
	m = update(t, m, msg)
	if m.mode != modeTranscript || m.st.Source.Ref != path || len(m.st.Session.Events) != 4 {
		t.Fatalf("load did not complete: %+v", m.st)
	}
}

func TestChooserTypedPath(t *testing.T) {
	m := newTestModel(t, Options{})
	for _, r := range "/nowhere/session.json" {
		m = update(t, m, runes(string(r)))
	}
	next, cmd := m.Update(enterKey)
	m = next.(model)
	if cmd == nil || !m.st.Loading {
		t.Fatal("a typed path should be loaded even when nothing matches")
	}
	msg := loadCmd(m.opts.Loader, state.Source{Kind: state.SourceLocal, Ref: "/nowhere/session.json"})()
	m = update(t, m, msg)
	if m.st.Err == nil || m.st.HasSession() || m.mode != modeChooser {
		t.Fatalf("missing file should surface an error and keep the chooser: %+v", m.st)
	}
}

func TestFormatErrorMessage(t *testing.T) {
	m := newTestModel(t, Options{})
	m = update(t, m, loadDoneMsg{err: &loader.FormatError{Msg: "invalid session format: 'events' array missing"}})
	if got := m.statusBar(); !strings.Contains(got, "Failed to parse session log") {
		t.Fatalf("status bar = %q", got)
	}
}
