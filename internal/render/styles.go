package render

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorUser      = lipgloss.Color("63")  // indigo
	colorAgent     = lipgloss.Color("36")  // emerald
	colorDim       = lipgloss.Color("244") // gray
	colorBorder    = lipgloss.Color("238") // dark gray
	colorSelected  = lipgloss.Color("12")  // bright blue
	colorToolCall  = lipgloss.Color("214") // amber
	colorToolReply = lipgloss.Color("42")  // green

	styleUserAuthor  = lipgloss.NewStyle().Foreground(colorUser).Bold(true)
	styleAgentAuthor = lipgloss.NewStyle().Foreground(colorAgent).Bold(true)
	styleDim         = lipgloss.NewStyle().Foreground(colorDim)
	stylePlaceholder = lipgloss.NewStyle().Foreground(colorDim).Italic(true)
	styleBold        = lipgloss.NewStyle().Bold(true)

	styleUserBubble = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorUser).
			Padding(0, 1)

	styleAgentBubble = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder).
				Padding(0, 1)

	styleSelectedBubble = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(colorSelected).
				Padding(0, 1)

	// Tool blocks
	styleToolCallLabel  = lipgloss.NewStyle().Foreground(colorToolCall).Bold(true)
	styleToolReplyLabel = lipgloss.NewStyle().Foreground(colorToolReply).Bold(true)

	styleToolCallBox = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(colorBorder)

	styleToolReplyBox = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder(), false, false, false, true).
				BorderForeground(colorToolReply).
				PaddingLeft(1)
)
