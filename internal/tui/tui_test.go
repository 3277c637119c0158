package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/defectctl/internal/httpclient"
	"github.com/balkashynov/defectctl/internal/models"
	"github.com/balkashynov/defectctl/internal/parser"
	"github.com/balkashynov/defectctl/internal/session"
)

type fakeActions struct {
	loginFn    func(ctx context.Context, username, password string) (*models.User, error)
	registerFn func(ctx context.Context, in models.RegisterInput) (*models.User, error)
}

func (f fakeActions) Login(ctx context.Context, username, password string) (*models.User, error) {
	return f.loginFn(ctx, username, password)
}

func (f fakeActions) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	return f.registerFn(ctx, in)
}

func typeText(m tea.Model, s string) tea.Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func press(m tea.Model, key tea.KeyType) (tea.Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: key})
}

// runCmd executes cmd, skipping spinner and shimmer ticks, and feeds the first
// result message back into m.
func runCmd(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Model {
	t.Helper()
	msg := findResult(cmd)
	if msg == nil {
		t.Fatal("command produced no result message")
	}
	m, _ = m.Update(msg)
	return m
}

func findResult(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if found := findResult(c); found != nil {
				return found
			}
		}
		return nil
	}
	switch msg.(type) {
	case authDoneMsg, defectCreatedMsg, defectsLoadedMsg, commentsLoadedMsg:
		return msg
	}
	return nil
}

func TestAuthModelLogin(t *testing.T) {
	var gotUser, gotPass string
	actions := fakeActions{loginFn: func(_ context.Context, u, p string) (*models.User, error) {
		gotUser, gotPass = u, p
		return &models.User{ID: 1, Username: u, Role: models.RoleEngineer}, nil
	}}

	var m tea.Model = NewAuthModel(context.Background(), actions, ModeLogin, "alice")
	m = typeText(m, "secret")
	m, cmd := press(m, tea.KeyEnter)
	if !m.(AuthModel).loading {
		t.Fatal("not loading after submit")
	}
	m = runCmd(t, m, cmd)

	if gotUser != "alice" || gotPass != "secret" {
		t.Fatalf("login called with %q/%q", gotUser, gotPass)
	}
	if u := m.(AuthModel).User(); u == nil || u.Username != "alice" {
		t.Fatalf("user = %+v", u)
	}
}

func TestAuthModelShowsServerError(t *testing.T) {
	actions := fakeActions{loginFn: func(context.Context, string, string) (*models.User, error) {
		return nil, &httpclient.Error{
			Kind:       httpclient.KindResponse,
			StatusCode: 401,
			Body:       []byte(`{"detail":"Incorrect username or password"}`),
		}
	}}

	var m tea.Model = NewAuthModel(context.Background(), actions, ModeLogin, "alice")
	m = typeText(m, "wrong")
	m, cmd := press(m, tea.KeyEnter)
	m = runCmd(t, m, cmd)

	if m.(AuthModel).User() != nil {
		t.Fatal("user set after failed login")
	}
	if view := m.View(); !strings.Contains(view, "Incorrect username or password") {
		t.Fatalf("error not shown:\n%s", view)
	}
}

func TestAuthModelValidatesRegistration(t *testing.T) {
	called := false
	actions := fakeActions{registerFn: func(context.Context, models.RegisterInput) (*models.User, error) {
		called = true
		return nil, errors.New("unreachable")
	}}

	var m tea.Model = NewAuthModel(context.Background(), actions, ModeRegister, "")
	m = typeText(m, "bob")
	m, _ = press(m, tea.KeyTab)
	m = typeText(m, "bob@example.com")
	m, _ = press(m, tea.KeyTab)
	m = typeText(m, "pw1")
	m, _ = press(m, tea.KeyTab)
	m = typeText(m, "pw2")
	m, cmd := press(m, tea.KeyEnter)

	if cmd != nil || called {
		t.Fatal("submitted with mismatched passwords")
	}
	if got := m.(AuthModel).validationErr; got != "Passwords do not match" {
		t.Fatalf("validation = %q", got)
	}
}

func TestAuthModelFollowsSessionLoading(t *testing.T) {
	var m tea.Model = NewAuthModel(context.Background(), fakeActions{}, ModeLogin, "")
	m, cmd := m.Update(sessionMsg(session.Session{Loading: true}))
	if !m.(AuthModel).loading || cmd == nil {
		t.Fatal("spinner not started by session loading")
	}
	m, _ = m.Update(sessionMsg(session.Session{Loading: false}))
	if m.(AuthModel).loading {
		t.Fatal("still loading after session settled")
	}
}

type fakeCreator struct {
	got models.DefectInput
}

func (f *fakeCreator) CreateDefect(_ context.Context, in models.DefectInput) (*models.Defect, error) {
	f.got = in
	return &models.Defect{ID: 5, Title: in.Title, ProjectID: in.ProjectID, Priority: in.Priority, Status: models.StatusNew}, nil
}

func TestDefectFormPrefilledSave(t *testing.T) {
	creator := &fakeCreator{}
	prefilled := parser.ParseTitle("Crash on save +critical @12")

	var m tea.Model = NewDefectFormModel(context.Background(), creator, prefilled)
	for i := StepTitle; i < StepSave; i++ {
		m, _ = press(m, tea.KeyEnter)
	}
	if m.(DefectFormModel).step != StepSave {
		t.Fatalf("stuck on step %d: %s", m.(DefectFormModel).step, m.(DefectFormModel).validationErr)
	}
	m, cmd := press(m, tea.KeyEnter)
	m = runCmd(t, m, cmd)

	if creator.got.Title != "Crash on save" || creator.got.ProjectID != 12 || creator.got.Priority != models.PriorityCritical {
		t.Fatalf("created with %+v", creator.got)
	}
	if m.(DefectFormModel).Created() == nil {
		t.Fatal("created defect not recorded")
	}
}

func TestDefectFormRequiresProject(t *testing.T) {
	var m tea.Model = NewDefectFormModel(context.Background(), &fakeCreator{}, parser.ParsedDefect{Title: "Leak"})
	m, _ = press(m, tea.KeyEnter)
	m, _ = press(m, tea.KeyEnter)

	form := m.(DefectFormModel)
	if form.step != StepProject || !strings.Contains(form.validationErr, "Project is required") {
		t.Fatalf("step %d, validation %q", form.step, form.validationErr)
	}
}

type fakeSource struct {
	defects  []models.Defect
	comments map[int][]models.Comment
	filters  []models.DefectFilter
}

func (f *fakeSource) Defects(_ context.Context, filter models.DefectFilter) ([]models.Defect, error) {
	f.filters = append(f.filters, filter)
	return f.defects, nil
}

func (f *fakeSource) Comments(_ context.Context, defectID int) ([]models.Comment, error) {
	return f.comments[defectID], nil
}

func TestBrowserLoadsAndNavigates(t *testing.T) {
	source := &fakeSource{
		defects: []models.Defect{
			{ID: 1, Title: "Crack", Priority: models.PriorityHigh, Status: models.StatusNew, ProjectID: 1},
			{ID: 2, Title: "Leak", Priority: models.PriorityLow, Status: models.StatusClosed, ProjectID: 1},
		},
		comments: map[int][]models.Comment{2: {{ID: 9, Content: "fixed by plumber", DefectID: 2}}},
	}

	var m tea.Model = NewBrowserModel(context.Background(), source, models.DefectFilter{})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	m, _ = m.Update(source.loadMsg())

	m, cmd := press(m, tea.KeyDown)
	m = runCmd(t, m, cmd)

	b := m.(BrowserModel)
	if d, _ := b.current(); d.ID != 2 {
		t.Fatalf("selected %d", d.ID)
	}
	if view := m.View(); !strings.Contains(view, "fixed by plumber") || !strings.Contains(view, "DEF-2") {
		t.Fatalf("details missing:\n%s", view)
	}
}

func TestBrowserSearchReloads(t *testing.T) {
	source := &fakeSource{}
	var m tea.Model = NewBrowserModel(context.Background(), source, models.DefectFilter{ProjectID: 3})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	m = typeText(m, "leak")
	m, cmd := press(m, tea.KeyEnter)
	runCmd(t, m, cmd)

	last := source.filters[len(source.filters)-1]
	if last.SearchQuery != "leak" || last.ProjectID != 3 {
		t.Fatalf("reload filter = %+v", last)
	}
}

func (f *fakeSource) loadMsg() tea.Msg {
	return defectsLoadedMsg{defects: f.defects}
}
