package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Zuo-Peng/adk-session-viewer/internal/history"
	"github.com/Zuo-Peng/adk-session-viewer/internal/inspect"
	"github.com/Zuo-Peng/adk-session-viewer/internal/loader"
	"github.com/Zuo-Peng/adk-session-viewer/internal/scan"
	"github.com/Zuo-Peng/adk-session-viewer/internal/session"
	"github.com/Zuo-Peng/adk-session-viewer/internal/state"
	"github.com/Zuo-Peng/adk-session-viewer/internal/transcript"
	"github.com/Zuo-Peng/adk-session-viewer/internal/watch"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type tuiMode int

const (
	modeChooser tuiMode = iota
	modeDrive
	modeTranscript
)

// Options configures the viewer.
type Options struct {
	Loader    *loader.Loader
	History   *history.DB // optional
	Clipboard inspect.Clipboard
	Location  *time.Location
	// Root is where the local chooser looks for session files.
	Root string
	// Initial is loaded as soon as the program starts.
	Initial *state.Source
	// Watch reloads local sessions when the file changes on disk.
	Watch bool
}

// message types

type loadDoneMsg struct {
	src  state.Source
	sess *session.Session
	err  error
}

type driveListMsg struct {
	files []loader.RemoteFile
	err   error
}

type filesMsg struct {
	files []scan.FileInfo
	err   error
}

type copyResetMsg struct {
	seq int
}

type fileChangedMsg struct {
	watcher *watch.Watcher
	ok      bool
}

// model

type model struct {
	opts  Options
	st    state.State
	mode  tuiMode
	back  tuiMode // where esc leaves the drive picker
	files []scan.FileInfo
	shown []scan.FileInfo // files after filtering
	drive []loader.RemoteFile

	cursor      int
	listOffset  int
	filterInput textinput.Model
	spinner     spinner.Model
	transcript  viewport.Model
	detail      viewport.Model
	blocks      []transcript.Block

	expandSig bool
	copied    bool
	copySeq   int

	watcher     *watch.Watcher
	watchedPath string

	width    int
	height   int
	ready    bool
	quitting bool
}

func initialModel(opts Options) model {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clipboard == nil {
		opts.Clipboard = inspect.SystemClipboard{}
	}
	if opts.Root == "" {
		opts.Root = "."
	}

	ti := textinput.New()
	ti.Placeholder = "Filter or path to a session .json..."
	ti.Focus()
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 1024

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleSpinner

	m := model{
		opts:        opts,
		mode:        modeChooser,
		filterInput: ti,
		spinner:     sp,
		transcript:  newViewport(0, 0),
		detail:      newViewport(0, 0),
	}
	if opts.Initial != nil {
		m.st = m.st.LoadStarted()
	}
	return m
}

// Run starts the TUI and blocks until it exits.
func Run(opts Options) error {
	m := initialModel(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	finalModel, err := p.Run()
	if fm, ok := finalModel.(model); ok && fm.watcher != nil {
		fm.watcher.Close()
	}
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// Init lists the chooser root and starts the initial load, if any.
func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, scanCmd(m.opts.Root)}
	if m.opts.Initial != nil {
		cmds = append(cmds, m.spinner.Tick, loadCmd(m.opts.Loader, *m.opts.Initial))
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.transcript = newViewport(m.transcriptWidth(), m.panelHeight())
		m.detail = newViewport(m.detailWidth(), m.panelHeight())
		m.refreshTranscript()
		m.refreshDetail()
		if m.st.HasSelection {
			m.scrollToSelected()
		} else {
			m.transcript.GotoBottom()
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.ForceQuit) {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case modeChooser:
			return m.updateChooser(msg)
		case modeDrive:
			return m.updateDrive(msg)
		default:
			return m.updateTranscript(msg)
		}

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case spinner.TickMsg:
		// the spinner stops once nothing is loading
		if !m.st.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case filesMsg:
		if msg.err != nil {
			slog.Warn("list session files failed", "root", m.opts.Root, "error", msg.err)
		}
		m.files = msg.files
		m.applyFilter()
		return m, nil

	case loadDoneMsg:
		return m.applyLoad(msg)

	case driveListMsg:
		if msg.err != nil {
			m.st = m.st.LoadFailed(msg.err)
			return m, nil
		}
		m.st = m.st.LoadCancelled()
		m.drive = msg.files
		m.back = m.mode
		m.mode = modeDrive
		m.cursor = 0
		m.listOffset = 0
		return m, nil

	case copyResetMsg:
		if msg.seq == m.copySeq && m.copied {
			m.copied = false
			m.refreshDetail()
		}
		return m, nil

	case fileChangedMsg:
		if msg.watcher != m.watcher || !msg.ok {
			return m, nil
		}
		cmds := []tea.Cmd{waitForChange(m.watcher)}
		if m.st.Source.Kind == state.SourceLocal {
			slog.Debug("session file changed", "path", m.st.Source.Ref)
			var cmd tea.Cmd
			m, cmd = m.startLoad(m.st.Source)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m model) updateChooser(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		if m.st.HasSession() {
			m.mode = modeTranscript
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Enter):
		if m.cursor < len(m.shown) {
			return m.startLoad(state.Source{Kind: state.SourceLocal, Ref: m.shown[m.cursor].Path})
		}
		if path := strings.TrimSpace(m.filterInput.Value()); path != "" {
			return m.startLoad(state.Source{Kind: state.SourceLocal, Ref: expandPath(path)})
		}
		return m, nil

	case key.Matches(msg, keys.ListDrive):
		return m.startDriveList()

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.adjustListScroll(m.listHeight())
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.shown)-1 {
			m.cursor++
			m.adjustListScroll(m.listHeight())
		}
		return m, nil
	}

	// Pass remaining keys to text input
	prev := m.filterInput.Value()
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	if m.filterInput.Value() != prev {
		m.applyFilter()
	}
	return m, cmd
}

func (m model) updateDrive(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		// cancelling the picker leaves the state untouched
		m.mode = m.back
		m.cursor = 0
		m.listOffset = 0
		return m, nil

	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Enter):
		if m.cursor < len(m.drive) {
			next, cmd := m.startLoad(state.Source{Kind: state.SourceDrive, Ref: m.drive[m.cursor].ID})
			next.mode = m.back
			return next, cmd
		}
		return m, nil

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.adjustListScroll(m.listHeight())
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.drive)-1 {
			m.cursor++
			m.adjustListScroll(m.listHeight())
		}
		return m, nil
	}
	return m, nil
}

func (m model) updateTranscript(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Back):
		m.deselect()
		return m, nil

	case key.Matches(msg, keys.Next), key.Matches(msg, keys.Prev):
		dir := 1
		if key.Matches(msg, keys.Prev) {
			dir = -1
		}
		cur := -1
		if m.st.HasSelection {
			cur = m.st.Selection
		}
		if blk, ok := transcript.Next(m.blocks, cur, dir); ok {
			m.selectEvent(blk.Index)
		}
		return m, nil

	case key.Matches(msg, keys.Copy):
		return m.copySelected()

	case key.Matches(msg, keys.Signature):
		if _, ok := m.st.Selected(); ok {
			m.expandSig = !m.expandSig
			m.refreshDetail()
		}
		return m, nil

	case key.Matches(msg, keys.Open):
		m.mode = modeChooser
		m.cursor = 0
		m.listOffset = 0
		return m, scanCmd(m.opts.Root)

	case key.Matches(msg, keys.Drive), key.Matches(msg, keys.ListDrive):
		return m.startDriveList()

	case key.Matches(msg, keys.Reload):
		if m.st.Source.Kind != state.SourceNone {
			return m.startLoad(m.st.Source)
		}
		return m, nil

	case key.Matches(msg, keys.Close):
		m.st = m.st.Reset()
		m.stopWatching()
		m.expandSig = false
		m.copied = false
		m.refreshTranscript()
		m.refreshDetail()
		m.mode = modeChooser
		m.filterInput.SetValue("")
		m.applyFilter()
		return m, scanCmd(m.opts.Root)

	case key.Matches(msg, keys.DetailUp):
		m.detail.LineUp(m.panelHeight() / 2)
		return m, nil

	case key.Matches(msg, keys.DetailDn):
		m.detail.LineDown(m.panelHeight() / 2)
		return m, nil

	case key.Matches(msg, keys.Up):
		m.transcript.LineUp(1)
		return m, nil

	case key.Matches(msg, keys.Down):
		m.transcript.LineDown(1)
		return m, nil

	case key.Matches(msg, keys.PageUp):
		m.transcript.LineUp(m.panelHeight())
		return m, nil

	case key.Matches(msg, keys.PageDown):
		m.transcript.LineDown(m.panelHeight())
		return m, nil
	}
	return m, nil
}

func (m model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !m.ready || m.mode != modeTranscript {
		return m, nil
	}

	region, line := m.hitTest(msg.X, msg.Y)
	switch {
	case region == regionTranscript && msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		// user events are not selectable; clicking them is a no-op
		if blk, ok := transcript.BlockAt(m.blocks, line); ok && blk.Selectable {
			m.selectEvent(blk.Index)
		}
		return m, nil

	case region == regionTranscript && isWheel(msg):
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd

	case region == regionDetail && isWheel(msg):
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

// startLoad begins loading src unless a load is already running, which
// keeps a second trigger from racing the first.
func (m model) startLoad(src state.Source) (model, tea.Cmd) {
	if m.st.Loading {
		return m, nil
	}
	m.st = m.st.LoadStarted()
	return m, tea.Batch(m.spinner.Tick, loadCmd(m.opts.Loader, src))
}

func (m model) startDriveList() (model, tea.Cmd) {
	if m.st.Loading {
		return m, nil
	}
	m.st = m.st.LoadStarted()
	return m, tea.Batch(m.spinner.Tick, listRemoteCmd(m.opts.Loader))
}

// applyLoad commits a finished load. Failures keep the previous session.
func (m model) applyLoad(msg loadDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.st = m.st.LoadFailed(msg.err)
		return m, nil
	}

	m.st = m.st.LoadSucceeded(msg.sess, msg.src)
	m.mode = modeTranscript
	m.expandSig = false
	m.copied = false
	m.refreshTranscript()
	m.refreshDetail()
	m.transcript.GotoBottom()
	m.record(msg)

	return m, m.watchSource(msg.src)
}

func (m model) record(msg loadDoneMsg) {
	if m.opts.History == nil {
		return
	}
	err := m.opts.History.Record(history.Location{
		Source:     string(msg.src.Kind),
		Ref:        msg.src.Ref,
		AppName:    msg.sess.AppName,
		SessionID:  msg.sess.ID,
		EventCount: len(msg.sess.Events),
	})
	if err != nil {
		slog.Warn("record history failed", "error", err)
	}
}

// watchSource keeps a watcher on the active local file when watching is
// enabled.
func (m *model) watchSource(src state.Source) tea.Cmd {
	if !m.opts.Watch {
		return nil
	}
	if src.Kind != state.SourceLocal {
		m.stopWatching()
		return nil
	}
	if m.watcher != nil && m.watchedPath == src.Ref {
		return nil
	}
	m.stopWatching()
	w, err := watch.New(src.Ref)
	if err != nil {
		slog.Warn("watch session file failed", "path", src.Ref, "error", err)
		return nil
	}
	m.watcher = w
	m.watchedPath = src.Ref
	return waitForChange(w)
}

func (m *model) stopWatching() {
	if m.watcher != nil {
		m.watcher.Close()
		m.watcher = nil
		m.watchedPath = ""
	}
}

func (m model) copySelected() (tea.Model, tea.Cmd) {
	ev, ok := m.st.Selected()
	if !ok {
		return m, nil
	}
	if err := inspect.Copy(ev, m.opts.Clipboard); err != nil {
		// no confirmation is shown for a failed copy
		slog.Debug("clipboard copy failed", "event_id", ev.ID, "error", err)
		return m, nil
	}
	m.copied = true
	m.copySeq++
	m.refreshDetail()
	seq := m.copySeq
	return m, tea.Tick(inspect.CopyFeedback, func(time.Time) tea.Msg {
		return copyResetMsg{seq: seq}
	})
}

func (m *model) applyFilter() {
	m.shown = filterFiles(m.files, m.filterInput.Value())
	m.cursor = 0
	m.listOffset = 0
}

// View renders the full TUI.
func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	header := m.header()
	status := m.statusBar()

	var body string
	switch m.mode {
	case modeChooser:
		list := renderList(localItems(m.opts.Root, m.shown), m.cursor, m.listOffset, m.fullWidth(), m.listHeight(), "No session files")
		body = lipgloss.JoinVertical(lipgloss.Left,
			m.filterInput.View(),
			styleActiveBorder.Width(m.fullWidth()).Height(m.listHeight()).Render(list),
		)
	case modeDrive:
		list := renderList(remoteItems(m.drive), m.cursor, m.listOffset, m.fullWidth(), m.listHeight(), "No session files in Drive")
		body = lipgloss.JoinVertical(lipgloss.Left,
			styleHeaderLabel.Render(" Drive: choose a session file"),
			styleActiveBorder.Width(m.fullWidth()).Height(m.listHeight()).Render(list),
		)
	default:
		body = m.transcriptView()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

func (m model) transcriptView() string {
	panelH := m.panelHeight()
	tw := m.transcriptWidth()

	m.transcript.Width = tw
	m.transcript.Height = panelH
	left := stylePanelBorder.Width(tw).Height(panelH).Render(m.transcript.View())

	if _, ok := m.st.Selected(); !ok {
		return left
	}
	m.detail.Width = m.detailWidth()
	m.detail.Height = panelH
	right := styleActiveBorder.Width(m.detailWidth()).Height(panelH).Render(m.detail.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m model) header() string {
	parts := []string{styleAppTitle.Render("ADK Session Viewer")}
	if sess := m.st.Session; sess != nil {
		parts = append(parts,
			styleHeaderLabel.Render("App: ")+styleHeaderValue.Render(orDash(sess.AppName)),
			styleHeaderLabel.Render("User: ")+styleHeaderValue.Render(orDash(sess.UserID)),
		)
	}
	if src := m.st.Source; src.Kind != state.SourceNone {
		parts = append(parts, styleHeaderLabel.Render(string(src.Kind)+": "+src.Ref))
	}
	return " " + strings.Join(parts, "  ")
}

func (m model) statusBar() string {
	if m.st.Loading {
		return styleStatusBar.Render(m.spinner.View() + " Loading...")
	}
	if m.st.Err != nil {
		return styleStatusError.Render(loader.Message(m.st.Err))
	}

	var parts []string
	switch m.mode {
	case modeChooser:
		parts = append(parts, fmt.Sprintf("%d files", len(m.shown)), "up/dn navigate", "Enter load", "C-g drive")
		if m.st.HasSession() {
			parts = append(parts, "Esc back")
		} else {
			parts = append(parts, "Esc quit")
		}
	case modeDrive:
		parts = append(parts, fmt.Sprintf("%d files", len(m.drive)), "Enter load", "Esc cancel")
	default:
		if m.st.HasSession() {
			parts = append(parts, fmt.Sprintf("%d events", len(m.st.Session.Events)))
		}
		parts = append(parts, "click/n/p select")
		if _, ok := m.st.Selected(); ok {
			parts = append(parts, "c copy", "s signature", "Esc deselect")
		}
		parts = append(parts, "o open", "g drive", "x close", "q quit")
	}
	return styleStatusBar.Render(strings.Join(parts, " | "))
}

// helper methods

func (m model) fullWidth() int {
	if m.width <= 0 {
		return 80
	}
	return max(m.width-2, 20)
}

func (m model) transcriptWidth() int {
	if _, ok := m.st.Selected(); !ok {
		return m.fullWidth()
	}
	// 60% for the transcript when the detail panel is open
	return max(m.width*60/100-2, 20)
}

func (m model) detailWidth() int {
	if m.width <= 0 {
		return 40
	}
	return max(m.width-m.transcriptWidth()-4, 20)
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// Subtract header (1) + status bar (1) + borders (2)
	return max(m.height-4, 5)
}

func (m model) listHeight() int {
	// the filter row sits above the list
	return max(m.panelHeight()-1, 4)
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionTranscript
	regionDetail
)

// hitTest maps terminal coordinates to a panel and, for the transcript,
// a content line.
func (m model) hitTest(x, y int) (mouseRegion, int) {
	contentYStart := 2 // header (1) + top border (1)
	contentYEnd := contentYStart + m.panelHeight() - 1
	if y < contentYStart || y > contentYEnd {
		return regionNone, -1
	}

	tw := m.transcriptWidth()
	if x >= 1 && x <= tw {
		return regionTranscript, m.transcript.YOffset + (y - contentYStart)
	}
	if _, ok := m.st.Selected(); ok && x > tw+2 {
		return regionDetail, -1
	}
	return regionNone, -1
}

// commands

func loadCmd(l *loader.Loader, src state.Source) tea.Cmd {
	return func() tea.Msg {
		var sess *session.Session
		var err error
		switch src.Kind {
		case state.SourceDrive:
			sess, err = l.LoadRemote(context.Background(), src.Ref)
		default:
			sess, err = l.LoadFile(src.Ref)
		}
		return loadDoneMsg{src: src, sess: sess, err: err}
	}
}

func listRemoteCmd(l *loader.Loader) tea.Cmd {
	return func() tea.Msg {
		files, err := l.ListRemote(context.Background())
		return driveListMsg{files: files, err: err}
	}
}

func scanCmd(root string) tea.Cmd {
	return func() tea.Msg {
		files, err := scan.JSONFiles(root)
		return filesMsg{files: files, err: err}
	}
}

func waitForChange(w *watch.Watcher) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-w.Changes()
		return fileChangedMsg{watcher: w, ok: ok}
	}
}

func isWheel(msg tea.MouseMsg) bool {
	return msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown
}

func expandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + p[1:]
		}
	}
	return p
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
