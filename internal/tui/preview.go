package tui

import (
	"github.com/Zuo-Peng/adk-session-viewer/internal/inspect"
	"github.com/Zuo-Peng/adk-session-viewer/internal/transcript"
	"github.com/charmbracelet/bubbles/viewport"
)

// newViewport creates a new viewport model with the given dimensions.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.MouseWheelEnabled = true
	return vp
}

// refreshTranscript re-renders the event list into the transcript pane
// and records where each event landed for mouse hit-testing.
func (m *model) refreshTranscript() {
	if !m.st.HasSession() {
		m.transcript.SetContent("")
		m.blocks = nil
		return
	}
	content, blocks := transcript.Render(m.st.Session.Events, transcript.Options{
		Width:        m.transcriptWidth(),
		Location:     m.opts.Location,
		Selection:    m.st.Selection,
		HasSelection: m.st.HasSelection,
	})
	m.transcript.Width = m.transcriptWidth()
	m.transcript.Height = m.panelHeight()
	m.transcript.SetContent(content)
	m.blocks = blocks
}

func (m *model) refreshDetail() {
	ev, ok := m.st.Selected()
	if !ok {
		m.detail.SetContent("")
		return
	}
	m.detail.Width = m.detailWidth()
	m.detail.Height = m.panelHeight()
	m.detail.SetContent(inspect.Render(ev, inspect.Options{
		Width:           m.detailWidth(),
		ExpandSignature: m.expandSig,
		Copied:          m.copied,
	}))
}

// selectEvent moves the inspector to the event at index, keeping the
// transcript highlight in step.
func (m *model) selectEvent(index int) {
	prev := m.st
	m.st = m.st.Select(index)
	if m.st.HasSelection == prev.HasSelection && m.st.Selection == prev.Selection {
		return
	}
	m.copied = false
	m.expandSig = false
	m.detail.GotoTop()
	m.refreshTranscript()
	m.refreshDetail()
	m.scrollToSelected()
}

func (m *model) deselect() {
	if !m.st.HasSelection {
		return
	}
	m.st = m.st.Deselect()
	m.copied = false
	m.expandSig = false
	m.refreshTranscript()
	m.refreshDetail()
}

// scrollToSelected brings the selected block into view.
func (m *model) scrollToSelected() {
	if !m.st.HasSelection {
		return
	}
	blk, ok := transcript.Find(m.blocks, m.st.Selection)
	if !ok {
		return
	}
	top := m.transcript.YOffset
	bottom := top + m.transcript.Height
	switch {
	case blk.Start < top:
		m.transcript.SetYOffset(blk.Start)
	case blk.End > bottom:
		m.transcript.SetYOffset(max(blk.End-m.transcript.Height, blk.Start))
	}
}
