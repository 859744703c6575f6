// Package tui renders the markup wizard in a terminal.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Simplici0/markup/internal/markup"
	"github.com/Simplici0/markup/internal/wizard"
)

// SubmitFunc is called once for every successful final submission.
type SubmitFunc func(wizard.Session)

// Model is the bubbletea model of the terminal wizard.
type Model struct {
	session wizard.Session
	fields  []markup.Field
	inputs  []textinput.Model
	focus   int
	reprice textinput.Model

	keys     KeyMap
	styles   styles
	onSubmit SubmitFunc
	now      func() time.Time
	width    int
}

// New returns a model positioned on the first step of a fresh session.
func New(id string, onSubmit SubmitFunc) Model {
	m := Model{
		session:  wizard.New(id),
		keys:     DefaultKeyMap(),
		styles:   newStyles(),
		onSubmit: onSubmit,
		now:      time.Now,
	}
	m.reprice = newInput("novo custo")
	m.rebuild()
	return m
}

// Session returns the current wizard state.
func (m Model) Session() wizard.Session {
	return m.session
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Restart):
			m.session = wizard.Restart(m.session)
			m.rebuild()
			return m, nil
		case key.Matches(msg, m.keys.Back):
			m.session = wizard.Retreat(m.session)
			m.rebuild()
			return m, nil
		case key.Matches(msg, m.keys.Next):
			m.next()
			return m, nil
		case key.Matches(msg, m.keys.Tab):
			m.moveFocus(1)
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.moveFocus(-1)
			return m, nil
		case key.Matches(msg, m.keys.Disable):
			m.toggleDisabled()
			return m, nil
		}
		return m.updateInput(msg)
	}

	return m, nil
}

func (m *Model) next() {
	switch m.session.Step {
	case wizard.StepResult:
		next, err := wizard.Reprice(m.session, m.reprice.Value())
		if err == nil {
			m.session = next
			m.reprice.SetValue("")
		}
		return
	case wizard.LastInputStep:
		m.session = wizard.SubmitFinal(m.session, m.now().UTC())
		if m.session.Step == wizard.StepResult && m.onSubmit != nil {
			m.onSubmit(m.session)
		}
	default:
		m.session = wizard.Advance(m.session)
	}
	m.rebuild()
}

func (m *Model) moveFocus(delta int) {
	if len(m.inputs) == 0 {
		return
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
}

func (m *Model) toggleDisabled() {
	if len(m.fields) == 0 {
		return
	}
	f := m.fields[m.focus]
	if !wizard.Disableable(f) {
		return
	}
	next, err := wizard.SetDisabled(m.session, f, !m.session.Disabled.Has(f))
	if err != nil {
		return
	}
	m.session = next
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.session.Step == wizard.StepResult {
		m.reprice, cmd = m.reprice.Update(msg)
		return m, cmd
	}
	if len(m.inputs) == 0 {
		return m, nil
	}

	f := m.fields[m.focus]
	if m.session.Disabled.Has(f) {
		return m, nil
	}

	in := m.inputs[m.focus]
	in, cmd = in.Update(msg)
	m.session = wizard.SetField(m.session, f, in.Value())
	if stored := m.session.Form.Get(f); stored != in.Value() {
		in.SetValue(stored)
	}
	m.inputs[m.focus] = in
	return m, cmd
}

// rebuild recreates the inputs for the current step from the session. Focus
// lands on the first field with an error, if any.
func (m *Model) rebuild() {
	m.fields = m.session.Step.Fields()
	m.inputs = make([]textinput.Model, len(m.fields))
	m.focus = 0

	found := false
	for i, f := range m.fields {
		in := newInput(wizard.FieldLabel(f))
		in.SetValue(m.session.Form.Get(f))
		m.inputs[i] = in
		if !found && m.session.Errors.Message(f) != "" {
			m.focus = i
			found = true
		}
	}
	if len(m.inputs) > 0 {
		m.inputs[m.focus].Focus()
	}

	if m.session.Step == wizard.StepResult {
		m.reprice.Focus()
	} else {
		m.reprice.Blur()
	}
}

func newInput(placeholder string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Width = 30
	in.Prompt = "› "
	return in
}
