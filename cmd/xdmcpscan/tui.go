package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jpillora/xdmcpscan"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	unwilling     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

type keyMap struct {
	Up, Down, Rescan, Add, Choose, Quit key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
	Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add host")),
	Choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

//eventMsg carries a chooser event into the program
type eventMsg xdmcpscan.Event

type errMsg struct{ err error }

func waitEvent(events <-chan xdmcpscan.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-events)
	}
}

type model struct {
	ctx      context.Context
	chooser  *xdmcpscan.Chooser
	allowAdd bool
	hosts    xdmcpscan.Hosts
	cursor   int
	scanning bool
	adding   bool
	status   string
	chosen   *xdmcpscan.Host
	spinner  spinner.Model
	input    textinput.Model
}

func newModel(ctx context.Context, c *xdmcpscan.Chooser, allowAdd bool) model {
	ti := textinput.New()
	ti.Placeholder = "hostname or address"
	ti.CharLimit = 255
	return model{
		ctx:      ctx,
		chooser:  c,
		allowAdd: allowAdd,
		scanning: true,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		input:    ti,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitEvent(m.chooser.Events()))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m.handleEvent(xdmcpscan.Event(msg))
	case errMsg:
		m.status = msg.err.Error()
		return m, nil
	case spinner.TickMsg:
		if !m.scanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if m.adding {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m model) handleEvent(e xdmcpscan.Event) (tea.Model, tea.Cmd) {
	next := waitEvent(m.chooser.Events())
	switch e.Type {
	case xdmcpscan.ScanStarted:
		m.hosts = nil
		m.cursor = 0
		m.scanning = true
		m.status = ""
		return m, tea.Batch(next, m.spinner.Tick)
	case xdmcpscan.HostUpdated:
		m.hosts = m.chooser.Hosts()
		if m.cursor >= len(m.hosts) {
			m.cursor = len(m.hosts) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
	case xdmcpscan.ScanDone:
		m.scanning = false
		m.status = fmt.Sprintf("%d willing hosts", e.Willing)
		if e.Willing == 0 {
			m.status = "no willing hosts found"
		}
	case xdmcpscan.HostSelected:
		h := *e.Host
		m.chosen = &h
		return m, tea.Quit
	case xdmcpscan.AddUnwilling:
		m.status = fmt.Sprintf("%s is not willing: %s", e.Host.Name, e.Host.Status)
	case xdmcpscan.AddTimeout:
		m.status = fmt.Sprintf("%s did not reply", e.Query)
	}
	return m, next
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.hosts)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Rescan):
		return m, m.post(m.chooser.Rescan)
	case key.Matches(msg, keys.Add):
		if !m.allowAdd {
			m.status = "adding hosts is disabled"
			return m, nil
		}
		m.adding = true
		m.input.SetValue("")
		return m, m.input.Focus()
	case key.Matches(msg, keys.Choose):
		if m.cursor >= len(m.hosts) {
			return m, nil
		}
		h := m.hosts[m.cursor]
		if !h.Willing {
			m.status = fmt.Sprintf("%s is not willing", h.Name)
			return m, nil
		}
		m.chosen = &h
		return m, tea.Quit
	}
	return m, nil
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.adding = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.adding = false
		m.input.Blur()
		name := strings.TrimSpace(m.input.Value())
		if name == "" {
			return m, nil
		}
		m.status = "querying " + name
		return m, m.post(func(ctx context.Context) error {
			return m.chooser.AddHost(ctx, name)
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

//post runs a chooser command off the update loop
func (m model) post(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		if err := fn(ctx); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m model) View() string {
	sb := strings.Builder{}
	sb.WriteString(titleStyle.Render("XDMCP hosts"))
	if m.scanning {
		sb.WriteString(" " + m.spinner.View())
	}
	sb.WriteString("\n\n")
	if len(m.hosts) == 0 {
		sb.WriteString(unwilling.Render("  no replies yet") + "\n")
	}
	for i, h := range m.hosts {
		line := fmt.Sprintf("%-32s %-15s %s", h.Name, h.IP, h.Status)
		switch {
		case i == m.cursor:
			line = selectedStyle.Render("> " + line)
		case !h.Willing:
			line = unwilling.Render("  " + line)
		default:
			line = "  " + line
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n")
	if m.adding {
		sb.WriteString("add host: " + m.input.View() + "\n")
	}
	if m.status != "" {
		sb.WriteString(statusStyle.Render(m.status) + "\n")
	}
	help := []key.Binding{keys.Up, keys.Down, keys.Choose, keys.Rescan, keys.Quit}
	if m.allowAdd {
		help = append(help, keys.Add)
	}
	parts := make([]string, 0, len(help))
	for _, b := range help {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	sb.WriteString(unwilling.Render(strings.Join(parts, " • ")))
	return sb.String()
}

func runInteractive(ctx context.Context, spec xdmcpscan.Spec, allowAdd bool) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("interactive mode requires a terminal (stdin/stdout must be TTYs)")
	}
	//logs would tear the UI
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	spec.Log = quiet
	c, err := xdmcpscan.NewChooser(ctx, spec)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() {
		runErr <- c.Run(ctx)
	}()
	final, err := tea.NewProgram(newModel(ctx, c, allowAdd), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	m, ok := final.(model)
	if !ok || m.chosen == nil {
		cancel()
		return <-runErr
	}
	chooseErr := c.Choose(ctx, *m.chosen)
	cancel()
	if err := <-runErr; err != nil {
		return err
	}
	return chooseErr
}
