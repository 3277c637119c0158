package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/defectctl/internal/httpclient"
	"github.com/balkashynov/defectctl/internal/models"
	"github.com/balkashynov/defectctl/internal/parser"
)

// DefectSource is what the browser reads from.
type DefectSource interface {
	Defects(ctx context.Context, filter models.DefectFilter) ([]models.Defect, error)
	Comments(ctx context.Context, defectID int) ([]models.Comment, error)
}

type defectsLoadedMsg struct {
	defects []models.Defect
	err     error
}

type commentsLoadedMsg struct {
	defectID int
	comments []models.Comment
	err      error
}

type shimmerTickMsg struct{}

// Focus represents what UI element has focus
type Focus int

const (
	FocusTable Focus = iota
	FocusSearch
)

// BrowserModel lists defects on the left and the selected one's details and comments
// on the right.
type BrowserModel struct {
	ctx    context.Context
	source DefectSource
	filter models.DefectFilter

	width  int
	height int

	defects  []models.Defect
	selected int
	page     int
	perPage  int

	comments    map[int][]models.Comment
	commentErrs map[int]string

	focus   Focus
	search  textinput.Model
	spinner spinner.Model
	loading bool
	err     string

	shimmer *ShimmerState
}

// NewBrowserModel creates a browser that loads defects matching filter.
func NewBrowserModel(ctx context.Context, source DefectSource, filter models.DefectFilter) BrowserModel {
	search := textinput.New()
	search.Prompt = "Search: "
	search.Placeholder = "title contains..."
	search.CharLimit = 100
	search.SetValue(filter.SearchQuery)
	search.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimaryText))
	search.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPlaceholder))

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentMain))

	return BrowserModel{
		ctx:         ctx,
		source:      source,
		filter:      filter,
		perPage:     10,
		comments:    map[int][]models.Comment{},
		commentErrs: map[int]string{},
		focus:       FocusTable,
		search:      search,
		spinner:     sp,
		loading:     true,
		shimmer:     NewShimmerState(DefaultShimmerConfig()),
	}
}

// Init initializes the model
func (m BrowserModel) Init() tea.Cmd {
	return tea.Batch(m.loadDefects(), m.spinner.Tick, m.tick())
}

func (m BrowserModel) tick() tea.Cmd {
	interval := m.shimmer.Interval()
	if interval == 0 {
		return nil
	}
	return tea.Tick(interval, func(time.Time) tea.Msg { return shimmerTickMsg{} })
}

func (m BrowserModel) loadDefects() tea.Cmd {
	ctx, source, filter := m.ctx, m.source, m.filter
	return func() tea.Msg {
		defects, err := source.Defects(ctx, filter)
		return defectsLoadedMsg{defects: defects, err: err}
	}
}

func (m BrowserModel) loadComments() tea.Cmd {
	d, ok := m.current()
	if !ok {
		return nil
	}
	if _, cached := m.comments[d.ID]; cached {
		return nil
	}
	ctx, source, id := m.ctx, m.source, d.ID
	return func() tea.Msg {
		comments, err := source.Comments(ctx, id)
		return commentsLoadedMsg{defectID: id, comments: comments, err: err}
	}
}

func (m BrowserModel) current() (models.Defect, bool) {
	if m.selected < 0 || m.selected >= len(m.defects) {
		return models.Defect{}, false
	}
	return m.defects[m.selected], true
}

// Update handles messages
func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Height - header, pagination, help, borders and margins = rows
		m.perPage = max(3, m.height-12)
		m.page = m.selected / m.perPage
		return m, nil

	case defectsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = httpclient.Describe(msg.err)
			return m, nil
		}
		m.err = ""
		m.defects = msg.defects
		m.selected, m.page = 0, 0
		m.shimmer.Reset()
		return m, m.loadComments()

	case commentsLoadedMsg:
		if msg.err != nil {
			m.commentErrs[msg.defectID] = httpclient.Describe(msg.err)
			return m, nil
		}
		m.comments[msg.defectID] = msg.comments
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case shimmerTickMsg:
		if d, ok := m.current(); ok {
			m.shimmer.Tick(len([]rune(d.Title)), time.Now())
		}
		return m, m.tick()

	case tea.KeyMsg:
		if m.focus == FocusSearch {
			return m.handleSearchKeys(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "up", "k":
			return m.moveSelection(-1)
		case "down", "j":
			return m.moveSelection(1)
		case "left", "h":
			return m.movePage(-1)
		case "right", "l":
			return m.movePage(1)
		case "r":
			return m.reload()
		case "/":
			m.focus = FocusSearch
			m.shimmer.SetActive(false)
			return m, m.search.Focus()
		}
	}
	return m, nil
}

// handleSearchKeys handles key input when in search mode
func (m BrowserModel) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.focus = FocusTable
		m.search.Blur()
		m.search.SetValue(m.filter.SearchQuery)
		m.shimmer.SetActive(true)
		return m, m.tick()

	case "enter":
		m.focus = FocusTable
		m.search.Blur()
		m.shimmer.SetActive(true)
		m.filter.SearchQuery = strings.TrimSpace(m.search.Value())
		next, cmd := m.reload()
		return next, tea.Batch(cmd, m.tick())
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m BrowserModel) reload() (tea.Model, tea.Cmd) {
	m.loading = true
	m.comments = map[int][]models.Comment{}
	m.commentErrs = map[int]string{}
	return m, tea.Batch(m.loadDefects(), m.spinner.Tick)
}

func (m BrowserModel) moveSelection(delta int) (tea.Model, tea.Cmd) {
	next := m.selected + delta
	if next < 0 || next >= len(m.defects) {
		return m, nil
	}
	m.selected = next
	m.page = m.selected / m.perPage
	m.shimmer.Reset()
	return m, m.loadComments()
}

func (m BrowserModel) movePage(delta int) (tea.Model, tea.Cmd) {
	pages := (len(m.defects) + m.perPage - 1) / m.perPage
	next := m.page + delta
	if next < 0 || next >= pages {
		return m, nil
	}
	m.page = next
	m.selected = min(m.page*m.perPage, len(m.defects)-1)
	m.shimmer.Reset()
	return m, m.loadComments()
}

// View renders the TUI
func (m BrowserModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	leftWidth := m.width * 60 / 100
	rightWidth := m.width - leftWidth - 1

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTable(leftWidth),
		" ",
		m.renderDetails(rightWidth),
	)

	bottom := m.renderHelpBar()
	if m.focus == FocusSearch {
		bottom = lipgloss.NewStyle().
			Background(lipgloss.Color(ColorBorder)).
			Padding(0, 1).
			Width(m.width - 2).
			Render(m.search.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, "", content, "", bottom)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

// renderTable renders the left panel with the defect table
func (m BrowserModel) renderTable(width int) string {
	var b strings.Builder

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright))
	header := "🐞 Defects"
	if m.filter.SearchQuery != "" {
		header += fmt.Sprintf(" matching %q", m.filter.SearchQuery)
	}
	if m.loading {
		header += " " + m.spinner.View()
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n\n")

	if m.err != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render(m.err))
		return m.border(width).Render(b.String())
	}
	if len(m.defects) == 0 && !m.loading {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText)).Italic(true).Render("No defects found"))
		return m.border(width).Render(b.String())
	}

	idWidth, priorityWidth, statusWidth := 8, 9, 11
	titleWidth := max(20, width-4-idWidth-priorityWidth-statusWidth-3)

	columns := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright)).Padding(0, 1)
	b.WriteString(columns.Render(fmt.Sprintf("%-*s %-*s %-*s %s",
		idWidth, "ID", titleWidth, "TITLE", priorityWidth, "PRIORITY", statusWidth, "STATUS")))
	b.WriteString("\n\n")

	start := m.page * m.perPage
	end := min(start+m.perPage, len(m.defects))
	for i := start; i < end; i++ {
		d := m.defects[i]

		title := fmt.Sprintf("%-*s", titleWidth, truncate(d.Title, titleWidth))
		if i == m.selected {
			title = m.shimmer.Render(title)
		}
		priority := lipgloss.NewStyle().Foreground(PriorityColor(d.Priority)).Width(priorityWidth).Render(d.Priority.Name())
		status := lipgloss.NewStyle().Foreground(StatusColor(d.Status)).Width(statusWidth).Render(d.Status.Name())

		row := fmt.Sprintf("%-*s %s %s %s", idWidth, parser.DefectRef(d.ID), title, priority, status)
		if i == m.selected {
			b.WriteString(lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(ColorAccentMain)).
				Bold(true).
				Padding(0, 1).
				Render(row))
		} else {
			b.WriteString(" " + row)
		}
		b.WriteString("\n")
	}

	if m.perPage < len(m.defects) {
		pages := (len(m.defects) + m.perPage - 1) / m.perPage
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorHelpText)).
			Align(lipgloss.Center).
			Width(width - 2).
			MarginTop(1).
			Render(fmt.Sprintf("Page %d/%d (%d defects)", m.page+1, pages, len(m.defects))))
	}
	return m.border(width).Render(b.String())
}

func (m BrowserModel) border(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Width(width)
}

// renderDetails renders the right panel with the selected defect and its comments
func (m BrowserModel) renderDetails(width int) string {
	var b strings.Builder
	d, ok := m.current()
	if !ok {
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorAccentMain)).
			Bold(true).
			Align(lipgloss.Center).
			Width(width).
			Render("defectctl"))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondaryText)).
			Italic(true).
			Align(lipgloss.Center).
			Width(width).
			MarginTop(2).
			Render("Select a defect to view details"))
		return m.border(width).Render(b.String())
	}

	label := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondaryText))
	field := func(name, value string, color lipgloss.Color) {
		b.WriteString(label.Render(name + ": "))
		b.WriteString(lipgloss.NewStyle().Foreground(color).Render(value))
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorPrimaryText)).Width(width).
		Render(parser.DefectRef(d.ID) + " " + d.Title))
	b.WriteString("\n\n")

	field("Status", d.Status.Name(), StatusColor(d.Status))
	field("Priority", d.Priority.Name(), PriorityColor(d.Priority))
	field("Project", fmt.Sprintf("#%d", d.ProjectID), lipgloss.Color(ColorAccentBright))
	field("Reporter", fmt.Sprintf("#%d", d.ReporterID), lipgloss.Color(ColorPrimaryText))
	if d.AssigneeID != nil {
		field("Assignee", fmt.Sprintf("#%d", *d.AssigneeID), lipgloss.Color(ColorPrimaryText))
	}
	field("Created", d.CreatedAt.Display(), lipgloss.Color(ColorPrimaryText))
	if d.DueDate != nil {
		field("Due", parser.FormatDueDate(&d.DueDate.Time, d.Status), lipgloss.Color(ColorWarning))
	}

	if d.Description != nil && *d.Description != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorSecondaryText)).
			Italic(true).
			Width(width - 2).
			Render(*d.Description))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccentBright)).Render("Comments"))
	b.WriteString("\n")
	comments, loaded := m.comments[d.ID]
	switch {
	case m.commentErrs[d.ID] != "":
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError)).Render(m.commentErrs[d.ID]))
	case !loaded:
		b.WriteString(label.Render("loading..."))
	case len(comments) == 0:
		b.WriteString(label.Italic(true).Render("no comments"))
	default:
		card := lipgloss.NewStyle().
			Background(lipgloss.Color(ColorCardBackground)).
			Foreground(lipgloss.Color(ColorPrimaryText)).
			Padding(0, 1).
			Width(width - 4)
		for _, c := range comments {
			b.WriteString(label.Render(fmt.Sprintf("#%d · %s", c.AuthorID, c.CreatedAt.Display())))
			b.WriteString("\n")
			b.WriteString(card.Render(c.Content))
			b.WriteString("\n")
		}
	}
	return m.border(width).Render(b.String())
}

// renderHelpBar renders the help bar with hotkey hints
func (m BrowserModel) renderHelpBar() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorHelpText)).
		Italic(true).
		Align(lipgloss.Center).
		Width(m.width).
		Render("↑/↓ nav · ←/→ page · / search · r reload · q/esc quit")
}
