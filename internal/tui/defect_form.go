package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/defectctl/internal/httpclient"
	"github.com/balkashynov/defectctl/internal/models"
	"github.com/balkashynov/defectctl/internal/parser"
)

// DefectCreator files defects.
type DefectCreator interface {
	CreateDefect(ctx context.Context, in models.DefectInput) (*models.Defect, error)
}

// Step represents the current step in the wizard
type Step int

const (
	StepTitle Step = iota
	StepProject
	StepPriority
	StepDueDate
	StepDescription
	StepSave
)

var stepLabels = []string{"Title", "Project", "Priority", "Due Date", "Description", "Save"}

type defectCreatedMsg struct {
	defect *models.Defect
	err    error
}

// DefectFormModel is the step-by-step wizard behind "defect add" without arguments.
type DefectFormModel struct {
	ctx     context.Context
	creator DefectCreator

	step   Step
	inputs []textinput.Model
	width  int

	spinner spinner.Model
	saving  bool

	validationErr string
	serverErr     string

	created   *models.Defect
	cancelled bool
}

// NewDefectFormModel creates the wizard, prefilled from a quick-add parse.
func NewDefectFormModel(ctx context.Context, creator DefectCreator, prefilled parser.ParsedDefect) DefectFormModel {
	inputs := make([]textinput.Model, StepSave)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Width = 60
		inputs[i].TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
		inputs[i].PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPlaceholder))
		inputs[i].Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright))
	}

	inputs[StepTitle].Placeholder = "What is broken? (required)"
	inputs[StepTitle].CharLimit = 200
	inputs[StepTitle].SetValue(prefilled.Title)

	inputs[StepProject].Placeholder = "Project id, e.g. 12 (required)"
	inputs[StepProject].CharLimit = 12
	if prefilled.ProjectID > 0 {
		inputs[StepProject].SetValue(strconv.Itoa(prefilled.ProjectID))
	}

	inputs[StepPriority].Placeholder = "low/medium/high/critical or 1-4 (Enter for medium)"
	inputs[StepPriority].CharLimit = 12
	if prefilled.Priority != "" {
		inputs[StepPriority].SetValue(strings.ToLower(prefilled.Priority.Name()))
	}

	inputs[StepDueDate].Placeholder = "dd/mm/yyyy, 3 days, 2 weeks (Enter to skip)"
	inputs[StepDueDate].CharLimit = 30
	if prefilled.DueDate != nil {
		inputs[StepDueDate].SetValue(prefilled.DueDate.Format("02/01/2006"))
	}

	inputs[StepDescription].Placeholder = "Steps to reproduce, location... (Enter to skip)"
	inputs[StepDescription].CharLimit = 1000

	inputs[StepTitle].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentMain))

	return DefectFormModel{ctx: ctx, creator: creator, inputs: inputs, spinner: sp}
}

// Created is the filed defect, nil until saved.
func (m DefectFormModel) Created() *models.Defect { return m.created }

// Cancelled reports whether the wizard was abandoned.
func (m DefectFormModel) Cancelled() bool { return m.cancelled }

// Init initializes the model
func (m DefectFormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m DefectFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		for i := range m.inputs {
			m.inputs[i].Width = min(80, max(30, m.width*2/3-10))
		}
		return m, nil

	case spinner.TickMsg:
		if !m.saving {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case defectCreatedMsg:
		m.saving = false
		if msg.err != nil {
			m.serverErr = httpclient.Describe(msg.err)
			return m, nil
		}
		m.created = msg.defect
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			if m.saving {
				return m, nil
			}
			return m.handleEnter()
		case "shift+tab", "up":
			return m.goTo(m.step - 1), nil
		case "tab", "down":
			if msg := m.validateStep(m.step); msg != "" {
				m.validationErr = msg
				return m, nil
			}
			return m.goTo(m.step + 1), nil
		}
	}

	var cmd tea.Cmd
	if m.step < StepSave {
		m.inputs[m.step], cmd = m.inputs[m.step].Update(msg)
		m.validationErr = ""
	}
	return m, cmd
}

func (m DefectFormModel) value(step Step) string {
	return strings.TrimSpace(m.inputs[step].Value())
}

// validateStep returns a message when the step's value cannot be used.
func (m DefectFormModel) validateStep(step Step) string {
	switch step {
	case StepTitle:
		if m.value(StepTitle) == "" {
			return "Defect title is required"
		}
	case StepProject:
		if _, err := parser.ParseRef(m.value(StepProject)); err != nil {
			return "Project is required: " + err.Error()
		}
	case StepPriority:
		if v := m.value(StepPriority); v != "" {
			if _, err := parser.ParsePriority(v); err != nil {
				return err.Error()
			}
		}
	case StepDueDate:
		if _, err := parser.ParseDueDate(m.value(StepDueDate)); err != nil {
			return "Invalid due date: " + err.Error()
		}
	}
	return ""
}

func (m DefectFormModel) handleEnter() (tea.Model, tea.Cmd) {
	m.validationErr = ""
	if m.step == StepSave {
		return m.save()
	}
	if msg := m.validateStep(m.step); msg != "" {
		m.validationErr = msg
		return m, nil
	}
	return m.goTo(m.step + 1), nil
}

func (m DefectFormModel) goTo(step Step) DefectFormModel {
	if step < StepTitle || step > StepSave {
		return m
	}
	if m.step < StepSave {
		m.inputs[m.step].Blur()
	}
	m.step = step
	if m.step < StepSave {
		m.inputs[m.step].Focus()
	}
	return m
}

// input builds the create request. Steps were validated on the way here.
func (m DefectFormModel) input() models.DefectInput {
	projectID, _ := parser.ParseRef(m.value(StepProject))
	in := models.DefectInput{Title: m.value(StepTitle), ProjectID: projectID}
	if v := m.value(StepPriority); v != "" {
		in.Priority, _ = parser.ParsePriority(v)
	}
	if due, _ := parser.ParseDueDate(m.value(StepDueDate)); due != nil {
		in.DueDate = models.NewTime(*due)
	}
	if v := m.value(StepDescription); v != "" {
		in.Description = &v
	}
	return in
}

func (m DefectFormModel) save() (tea.Model, tea.Cmd) {
	for step := StepTitle; step < StepSave; step++ {
		if msg := m.validateStep(step); msg != "" {
			m.validationErr = msg
			return m.goTo(step), nil
		}
	}
	m.saving = true
	m.serverErr = ""
	ctx, creator, in := m.ctx, m.creator, m.input()
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		d, err := creator.CreateDefect(ctx, in)
		return defectCreatedMsg{defect: d, err: err}
	})
}

// View renders the TUI
func (m DefectFormModel) View() string {
	if m.cancelled || m.created != nil {
		return ""
	}
	left := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Padding(1).
		Render(m.renderWizard())
	if m.width > 0 && m.width < 110 {
		return left
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", m.renderPreview())
}

// renderWizard renders the step-by-step wizard
func (m DefectFormModel) renderWizard() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright)).Render("🐞 File a defect"))
	b.WriteString("\n\n")

	var steps []string
	for i, label := range stepLabels {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDisabledText))
		switch {
		case Step(i) == m.step:
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Bold(true)
		case Step(i) < m.step:
			style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess))
		}
		steps = append(steps, style.Render(label))
	}
	b.WriteString(strings.Join(steps, " › "))
	b.WriteString("\n\n")

	if m.step < StepSave {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText)).Bold(true).Render(stepLabels[m.step]))
		b.WriteString("\n")
		b.WriteString(m.inputs[m.step].View())
	} else if m.saving {
		b.WriteString(m.spinner.View() + " Saving...")
	} else {
		b.WriteString("Press Enter to file the defect, ↑ to go back")
	}
	b.WriteString("\n\n")

	if m.validationErr != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning)).Render("⚠ " + m.validationErr))
		b.WriteString("\n")
	}
	if m.serverErr != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render("✗ " + m.serverErr))
		b.WriteString("\n")
	}
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorHelpText)).Italic(true).
		Render("enter next · tab/↓ next · shift+tab/↑ back · esc cancel"))
	return b.String()
}

// renderPreview shows the defect as it will be filed
func (m DefectFormModel) renderPreview() string {
	in := m.input()
	label := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorPrimaryText)).Render("Preview"))
	b.WriteString("\n\n")

	title := in.Title
	if title == "" {
		title = "(untitled)"
	}
	b.WriteString(title + "\n")

	project := "-"
	if in.ProjectID > 0 {
		project = fmt.Sprintf("#%d", in.ProjectID)
	}
	b.WriteString(label.Render("Project: ") + project + "\n")

	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	b.WriteString(label.Render("Priority: ") + lipgloss.NewStyle().Foreground(PriorityColor(priority)).Render(priority.Name()) + "\n")
	b.WriteString(label.Render("Due: ") + in.DueDate.Display() + "\n")
	if in.Description != nil {
		b.WriteString("\n" + lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(ColorSecondaryText)).Width(40).Render(*in.Description))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(ColorCardBackground)).
		Padding(1, 2).
		Width(46).
		Render(b.String())
}
