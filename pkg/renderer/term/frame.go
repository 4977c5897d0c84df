package term

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/holon-run/ltdi/pkg/icons"
	"github.com/holon-run/ltdi/pkg/protocol"
	"github.com/muesli/reflow/wordwrap"
)

// Terminal cells are roughly this many pixels, for converting window
// geometry into cells.
const (
	cellWidth  = 8
	cellHeight = 16
	minCells   = 40
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("252")).
			Padding(1, 2)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	helpStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	buttonStyle  = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.NormalBorder())
	focusedStyle = buttonStyle.BorderForeground(lipgloss.Color("12")).Bold(true)
)

// frame draws the box every dialog lives in and places it on screen.
type frame struct {
	title  string
	glyph  string
	width  int
	height int
	hpos   lipgloss.Position
	vpos   lipgloss.Position
	margin [4]int // top, right, bottom, left

	winW, winH int
}

func newFrame(req *protocol.Request) frame {
	f := frame{
		title: req.Title,
		width: max(minCells, req.MinWidth/cellWidth),
		hpos:  lipgloss.Center,
		vpos:  lipgloss.Center,
	}
	if req.MinHeight > 0 {
		f.height = req.MinHeight / cellHeight
	}
	if pair, ok := icons.Resolve(req.Icon); ok {
		f.glyph = pair.Glyph
	}
	switch {
	case req.Left != nil:
		f.hpos = lipgloss.Left
		f.margin[3] = *req.Left / cellWidth
	case req.Right != nil:
		f.hpos = lipgloss.Right
		f.margin[1] = *req.Right / cellWidth
	}
	switch {
	case req.Top != nil:
		f.vpos = lipgloss.Top
		f.margin[0] = *req.Top / cellHeight
	case req.Bottom != nil:
		f.vpos = lipgloss.Bottom
		f.margin[2] = *req.Bottom / cellHeight
	}
	return f
}

func (f *frame) resize(msg tea.WindowSizeMsg) {
	f.winW, f.winH = msg.Width, msg.Height
}

// inner is the usable text width inside the border and padding.
func (f frame) inner() int {
	return f.width - 6
}

func (f frame) wrap(text string) string {
	return wordwrap.String(text, f.inner())
}

func (f frame) render(sections ...string) string {
	var parts []string
	header := f.title
	if f.glyph != "" {
		header = strings.TrimSpace(f.glyph + " " + header)
	}
	if header != "" {
		parts = append(parts, titleStyle.Render(header))
	}
	for _, s := range sections {
		if s != "" {
			parts = append(parts, s)
		}
	}

	style := boxStyle.Width(f.width).
		Margin(f.margin[0], f.margin[1], f.margin[2], f.margin[3])
	if f.height > 0 {
		style = style.Height(f.height)
	}
	box := style.Render(strings.Join(parts, "\n\n"))
	if f.winW == 0 || f.winH == 0 {
		return box
	}
	return lipgloss.Place(f.winW, f.winH, f.hpos, f.vpos, box)
}
