package term

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/holon-run/ltdi/pkg/protocol"
)

type keymap struct {
	next    key.Binding
	prev    key.Binding
	confirm key.Binding
	cancel  key.Binding
}

func defaultKeymap() keymap {
	return keymap{
		next: key.NewBinding(
			key.WithKeys("tab", "right", "down"),
			key.WithHelp("tab", "next"),
		),
		prev: key.NewBinding(
			key.WithKeys("shift+tab", "left", "up"),
			key.WithHelp("shift+tab", "previous"),
		),
		confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ok"),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

func (k keymap) help() string {
	var parts []string
	for _, b := range []key.Binding{k.confirm, k.next, k.cancel} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}

// --- Buttons ----------------------------------------------------------------

type buttonModel struct {
	frame
	keys     keymap
	text     string
	choices  []string
	cursor   int
	selected int
}

func newButtonModel(req *protocol.Request) buttonModel {
	return buttonModel{
		frame:    newFrame(req),
		keys:     defaultKeymap(),
		text:     req.Message,
		choices:  req.Choices,
		selected: protocol.Cancelled,
	}
}

func (m buttonModel) Init() tea.Cmd { return nil }

func (m buttonModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg)
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.cancel):
			m.selected = protocol.Cancelled
			return m, tea.Quit
		case key.Matches(msg, m.keys.confirm), msg.String() == " ":
			m.selected = m.cursor
			return m, tea.Quit
		case key.Matches(msg, m.keys.next):
			m.cursor = (m.cursor + 1) % len(m.choices)
		case key.Matches(msg, m.keys.prev):
			m.cursor = (m.cursor - 1 + len(m.choices)) % len(m.choices)
		default:
			// Number keys pick a button directly.
			if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(m.choices) {
				m.selected = n - 1
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m buttonModel) View() string {
	buttons := make([]string, len(m.choices))
	for i, c := range m.choices {
		style := buttonStyle
		if i == m.cursor {
			style = focusedStyle
		}
		buttons[i] = style.Render(c)
	}
	return m.render(m.wrap(m.text), lipgloss.JoinHorizontal(lipgloss.Top, buttons...), m.keys.help())
}

// --- Input ------------------------------------------------------------------

type inputModel struct {
	frame
	keys      keymap
	text      string
	labels    []string
	inputs    []textinput.Model
	focus     int
	confirmed bool
}

func newInputModel(req *protocol.Request, fields []protocol.Field) inputModel {
	m := inputModel{
		frame:  newFrame(req),
		keys:   defaultKeymap(),
		text:   req.Message,
		labels: make([]string, len(fields)),
		inputs: make([]textinput.Model, len(fields)),
	}
	m.keys.next.SetKeys("tab", "down")
	m.keys.prev.SetKeys("shift+tab", "up")
	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.Width = m.inner() - 4
		ti.SetValue(f.Initial)
		if f.Masked {
			ti.EchoMode = textinput.EchoPassword
		}
		m.labels[i] = f.Label
		m.inputs[i] = ti
	}
	m.inputs[0].Focus()
	return m
}

func (m inputModel) Init() tea.Cmd { return textinput.Blink }

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg)
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.cancel):
			m.confirmed = false
			return m, tea.Quit
		case key.Matches(msg, m.keys.confirm):
			m.confirmed = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.next):
			return m, m.setFocus((m.focus + 1) % len(m.inputs))
		case key.Matches(msg, m.keys.prev):
			return m, m.setFocus((m.focus - 1 + len(m.inputs)) % len(m.inputs))
		}
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *inputModel) setFocus(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[i].Focus()
}

func (m inputModel) values() []string {
	values := make([]string, len(m.inputs))
	for i, ti := range m.inputs {
		values[i] = ti.Value()
	}
	return values
}

func (m inputModel) View() string {
	rows := make([]string, 0, len(m.inputs))
	for i, ti := range m.inputs {
		row := ti.View()
		if m.labels[i] != "" {
			row = labelStyle.Render(m.labels[i]) + "\n" + row
		}
		rows = append(rows, row)
	}
	return m.render(m.wrap(m.text), strings.Join(rows, "\n"), m.keys.help())
}

// --- Message ----------------------------------------------------------------

type messageModel struct {
	frame
	keys keymap
	text string
}

func newMessageModel(req *protocol.Request) messageModel {
	return messageModel{frame: newFrame(req), keys: defaultKeymap(), text: req.Message}
}

func (m messageModel) Init() tea.Cmd { return nil }

func (m messageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg)
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.cancel) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m messageModel) View() string {
	return m.render(m.wrap(m.text))
}

// --- Path picker ------------------------------------------------------------

type pathModel struct {
	frame
	keys     keymap
	prompt   string
	dirsOnly bool
	input    textinput.Model
	err      error
	path     string
}

func newPathModel(req *protocol.Request, dirsOnly bool) pathModel {
	start, err := filepath.Abs(req.InitialFolder)
	if err != nil {
		start = req.InitialFolder
	}
	prompt := "Select a file"
	if dirsOnly {
		prompt = "Select a folder"
	}
	m := pathModel{
		frame:    newFrame(req),
		keys:     defaultKeymap(),
		prompt:   prompt,
		dirsOnly: dirsOnly,
	}
	m.keys.next.SetKeys("tab")
	m.keys.next.SetHelp("tab", "complete")
	m.input = textinput.New()
	m.input.Prompt = "> "
	m.input.Width = m.inner() - 4
	m.input.SetValue(withSeparator(start))
	m.input.Focus()
	return m
}

func (m pathModel) Init() tea.Cmd { return textinput.Blink }

func (m pathModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg)
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.cancel):
			m.path = ""
			return m, tea.Quit
		case key.Matches(msg, m.keys.confirm):
			path, err := m.check(m.input.Value())
			if err != nil {
				m.err = err
				return m, nil
			}
			m.path = path
			return m, tea.Quit
		case key.Matches(msg, m.keys.next):
			m.input.SetValue(complete(m.input.Value(), m.dirsOnly))
			m.input.CursorEnd()
			return m, nil
		}
	}
	m.err = nil
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m pathModel) check(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("no path entered")
	}
	path, err := filepath.Abs(value)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%s does not exist", path)
	}
	if m.dirsOnly && !info.IsDir() {
		return "", fmt.Errorf("%s is not a folder", path)
	}
	if !m.dirsOnly && info.IsDir() {
		return "", fmt.Errorf("%s is a folder", path)
	}
	return path, nil
}

func (m pathModel) View() string {
	status := m.keys.help()
	if m.err != nil {
		status = errorStyle.Render(m.err.Error())
	}
	return m.render(m.prompt, m.input.View(), status)
}

// complete extends value to the longest common prefix of the entries it
// matches.
func complete(value string, dirsOnly bool) string {
	matches, err := filepath.Glob(value + "*")
	if err != nil || len(matches) == 0 {
		return value
	}
	var candidates []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || (dirsOnly && !info.IsDir()) {
			continue
		}
		if info.IsDir() {
			match = withSeparator(match)
		}
		candidates = append(candidates, match)
	}
	if len(candidates) == 0 {
		return value
	}
	prefix := candidates[0]
	for _, c := range candidates[1:] {
		for !strings.HasPrefix(c, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	if len(prefix) < len(value) {
		return value
	}
	return prefix
}

func withSeparator(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}
