package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/balkashynov/defectctl/internal/apitest"
	"github.com/balkashynov/defectctl/internal/httpclient"
	"github.com/balkashynov/defectctl/internal/models"
)

type fixture struct {
	backend *apitest.Backend
	api     *API
	token   string
	user    models.User
}

func newFixture(t *testing.T, role models.Role) *fixture {
	t.Helper()
	f := &fixture{backend: apitest.New()}
	t.Cleanup(f.backend.Close)

	f.user = f.backend.AddUser("alice", "secret", role)
	f.token = f.backend.IssueToken(f.user.ID)

	client, err := httpclient.New(f.backend.URL(),
		httpclient.WithRequestHook(httpclient.RequestID()),
		httpclient.WithRequestHook(httpclient.BearerToken(httpclient.TokenFunc(func() (string, error) {
			return f.token, nil
		}))),
	)
	if err != nil {
		t.Fatalf("httpclient.New: %v", err)
	}
	f.api = New(client)
	return f
}

func (f *fixture) project(t *testing.T) *models.Project {
	t.Helper()
	p, err := f.api.CreateProject(context.Background(), f.user.ID, models.ProjectInput{Title: "Tower A"})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func TestLoginSendsForm(t *testing.T) {
	f := newFixture(t, models.RoleEngineer)
	f.token = ""

	token, err := f.api.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token.AccessToken == "" || token.TokenType != "bearer" {
		t.Fatalf("unexpected token %+v", token)
	}

	req := f.backend.LastRequest()
	if ct := req.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(string(req.Body), "username=alice") {
		t.Errorf("body = %q", req.Body)
	}
	if req.Header.Get("Authorization") != "" {
		t.Errorf("login sent an Authorization header without a stored token")
	}
}

func TestLoginRejected(t *testing.T) {
	f := newFixture(t, models.RoleEngineer)

	_, err := f.api.Login(context.Background(), "alice", "wrong")
	if !httpclient.IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	var apiErr *httpclient.Error
	if !errors.As(err, &apiErr) || apiErr.Message() != "Incorrect username or password" {
		t.Fatalf("unexpected error detail: %v", err)
	}
}

func TestRegisterReportsServerRole(t *testing.T) {
	f := newFixture(t, models.RoleEngineer)

	user, err := f.api.Register(context.Background(), models.RegisterInput{
		Username: "bob", Email: "bob@example.com", Password: "pw", Role: models.RoleManager,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != models.RoleObserver {
		t.Fatalf("role = %q, want observer", user.Role)
	}
}

func TestCurrentUserUsesBearer(t *testing.T) {
	f := newFixture(t, models.RoleEngineer)

	me, err := f.api.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if me.ID != f.user.ID {
		t.Fatalf("got user %d, want %d", me.ID, f.user.ID)
	}
	if got := f.backend.LastRequest().Header.Get("Authorization"); got != "Bearer "+f.token {
		t.Fatalf("Authorization = %q", got)
	}

	f.backend.RevokeTokens()
	if _, err := f.api.CurrentUser(context.Background()); !httpclient.IsUnauthorized(err) {
		t.Fatalf("expected 401 after revocation, got %v", err)
	}
}

func TestProjectLifecycle(t *testing.T) {
	f := newFixture(t, models.RoleManager)
	ctx := context.Background()
	p := f.project(t)

	if req := f.backend.LastRequest(); req.Path != "/users/1/projects/" {
		t.Errorf("create path = %q", req.Path)
	}

	desc := "north wing"
	updated, err := f.api.UpdateProject(ctx, p.ID, models.ProjectInput{Title: "Tower B", Description: &desc})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if updated.Title != "Tower B" || updated.Description == nil || *updated.Description != desc {
		t.Fatalf("unexpected project %+v", updated)
	}

	projects, err := f.api.Projects(ctx)
	if err != nil || len(projects) != 1 {
		t.Fatalf("Projects = %v, %v", projects, err)
	}

	if err := f.api.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := f.api.Project(ctx, p.ID); !httpclient.IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
}

func TestDefectsFilterAndUpdate(t *testing.T) {
	f := newFixture(t, models.RoleEngineer)
	ctx := context.Background()
	p := f.project(t)

	crash, err := f.api.CreateDefect(ctx, models.DefectInput{Title: "Crack in wall", ProjectID: p.ID, Priority: models.PriorityCritical})
	if err != nil {
		t.Fatalf("CreateDefect: %v", err)
	}
	if _, err := f.api.CreateDefect(ctx, models.DefectInput{Title: "Loose tile", ProjectID: p.ID}); err != nil {
		t.Fatalf("CreateDefect: %v", err)
	}

	found, err := f.api.Defects(ctx, models.DefectFilter{ProjectID: p.ID, Priority: models.PriorityCritical})
	if err != nil {
		t.Fatalf("Defects: %v", err)
	}
	if len(found) != 1 || found[0].ID != crash.ID {
		t.Fatalf("filter returned %+v", found)
	}
	q := f.backend.LastRequest().Query
	if q.Get("priority") != string(models.PriorityCritical) || q.Get("project_id") == "" {
		t.Errorf("query = %v", q)
	}

	status := models.StatusInProgress
	updated, err := f.api.UpdateDefect(ctx, crash.ID, models.DefectUpdate{Status: &status})
	if err != nil {
		t.Fatalf("UpdateDefect: %v", err)
	}
	if updated.Status != status || updated.Title != crash.Title || updated.UpdatedAt == nil {
		t.Fatalf("unexpected defect %+v", updated)
	}

	if err := f.api.DeleteDefect(ctx, crash.ID); err != nil {
		t.Fatalf("DeleteDefect: %v", err)
	}
}

func TestCreateDefectValidationError(t *testing.T) {
	f := newFixture(t, models.RoleEngineer)
	p := f.project(t)

	_, err := f.api.CreateDefect(context.Background(), models.DefectInput{Title: "x", ProjectID: p.ID, Priority: "urgent"})
	if !httpclient.IsStatus(err, http.StatusUnprocessableEntity) {
		t.Fatalf("expected 422, got %v", err)
	}
	if got := httpclient.Describe(err); !strings.Contains(got, "invalid priority") {
		t.Fatalf("Describe = %q", got)
	}
}

func TestComments(t *testing.T) {
	f := newFixture(t, models.RoleEngineer)
	ctx := context.Background()
	p := f.project(t)
	d, _ := f.api.CreateDefect(ctx, models.DefectInput{Title: "Leak", ProjectID: p.ID})

	c, err := f.api.CreateComment(ctx, d.ID, "seen on floor 3")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if c.AuthorID != f.user.ID || c.DefectID != d.ID {
		t.Fatalf("unexpected comment %+v", c)
	}

	edited, err := f.api.UpdateComment(ctx, c.ID, d.ID, "seen on floor 4")
	if err != nil || edited.Content != "seen on floor 4" {
		t.Fatalf("UpdateComment = %+v, %v", edited, err)
	}

	comments, err := f.api.Comments(ctx, d.ID)
	if err != nil || len(comments) != 1 {
		t.Fatalf("Comments = %v, %v", comments, err)
	}

	if err := f.api.DeleteComment(ctx, c.ID); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	comments, _ = f.api.Comments(ctx, d.ID)
	if len(comments) != 0 {
		t.Fatalf("comment survived delete: %v", comments)
	}
}

func TestAttachmentRoundTrip(t *testing.T) {
	f := newFixture(t, models.RoleEngineer)
	ctx := context.Background()
	p := f.project(t)
	d, _ := f.api.CreateDefect(ctx, models.DefectInput{Title: "Leak", ProjectID: p.ID})

	content := []byte{0x89, 'P', 'N', 'G', 0xff, 0x00}
	a, err := f.api.UploadAttachment(ctx, d.ID, "photo.png", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("UploadAttachment: %v", err)
	}
	if a.Filename != "photo.png" {
		t.Fatalf("filename = %q", a.Filename)
	}
	if ct := f.backend.LastRequest().Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data") {
		t.Errorf("upload content type = %q", ct)
	}

	blob, err := f.api.DownloadAttachment(ctx, d.ID, a.ID)
	if err != nil {
		t.Fatalf("DownloadAttachment: %v", err)
	}
	if !bytes.Equal(blob.Data, content) || blob.Filename != "photo.png" {
		t.Fatalf("downloaded %q as %q", blob.Data, blob.Filename)
	}

	if err := f.api.DeleteAttachment(ctx, d.ID, a.ID); err != nil {
		t.Fatalf("DeleteAttachment: %v", err)
	}
	list, err := f.api.Attachments(ctx, d.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("Attachments after delete = %v, %v", list, err)
	}
}

func TestUsersAndRoles(t *testing.T) {
	f := newFixture(t, models.RoleManager)
	ctx := context.Background()
	bob := f.backend.AddUser("bob", "pw", models.RoleObserver)

	users, err := f.api.Users(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("Users = %v, %v", users, err)
	}

	updated, err := f.api.UpdateUserRole(ctx, bob.ID, models.RoleEngineer)
	if err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}
	if updated.Role != models.RoleEngineer {
		t.Fatalf("role = %q", updated.Role)
	}
	req := f.backend.LastRequest()
	if req.Query.Get("new_role") != "engineer" || !strings.Contains(string(req.Body), `"new_role":"engineer"`) {
		t.Errorf("role update sent query %v body %s", req.Query, req.Body)
	}

	fetched, err := f.api.User(ctx, bob.ID)
	if err != nil || fetched.Role != models.RoleEngineer {
		t.Fatalf("User = %+v, %v", fetched, err)
	}

	if _, err := f.api.UpdateUserRole(ctx, bob.ID, "owner"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestUsersForbiddenForEngineer(t *testing.T) {
	f := newFixture(t, models.RoleEngineer)
	if _, err := f.api.Users(context.Background()); !httpclient.IsStatus(err, http.StatusForbidden) {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestExportReturnsRawBytes(t *testing.T) {
	f := newFixture(t, models.RoleManager)

	blob, err := f.api.ExportDefects(context.Background(), models.ExportXLSX, models.DefectFilter{Status: models.StatusNew})
	if err != nil {
		t.Fatalf("ExportDefects: %v", err)
	}
	if !bytes.Equal(blob.Data, apitest.ExportData) {
		t.Fatalf("export bytes altered: %v", blob.Data)
	}
	if blob.Filename != "defects_report.xlsx" {
		t.Errorf("filename = %q", blob.Filename)
	}
	q := f.backend.LastRequest().Query
	if q.Get("format") != "xlsx" || q.Get("status") != string(models.StatusNew) {
		t.Errorf("query = %v", q)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	f := newFixture(t, models.RoleManager)
	before := len(f.backend.Requests())

	_, err := f.api.ExportDefects(context.Background(), "pdf", models.DefectFilter{})
	if !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
	if len(f.backend.Requests()) != before {
		t.Fatal("invalid export reached the server")
	}
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t, models.RoleManager)
	ctx := context.Background()
	p := f.project(t)
	f.api.CreateDefect(ctx, models.DefectInput{Title: "a", ProjectID: p.ID, Priority: models.PriorityHigh})
	f.api.CreateDefect(ctx, models.DefectInput{Title: "b", ProjectID: p.ID, Status: models.StatusClosed})

	summary, err := f.api.AnalyticsSummary(ctx, models.DateRange{})
	if err != nil || summary["total_defects"] != float64(2) {
		t.Fatalf("summary = %v, %v", summary, err)
	}

	statuses, err := f.api.StatusDistribution(ctx, models.DateRange{})
	if err != nil || statuses[string(models.StatusClosed)] != 1 {
		t.Fatalf("status distribution = %v, %v", statuses, err)
	}

	priorities, err := f.api.PriorityDistribution(ctx, models.DateRange{})
	if err != nil || priorities[string(models.PriorityHigh)] != 1 {
		t.Fatalf("priority distribution = %v, %v", priorities, err)
	}

	trend, err := f.api.CreationTrend(ctx, 0)
	if err != nil || len(trend) != 30 {
		t.Fatalf("trend = %d points, %v", len(trend), err)
	}
	if got := f.backend.LastRequest().Query.Get("days"); got != "30" {
		t.Errorf("days = %q", got)
	}

	stats, err := f.api.ProjectPerformance(ctx, models.DateRange{})
	if err != nil || len(stats) != 1 || stats[0].OpenDefects != 1 || stats[0].ClosedDefects != 1 {
		t.Fatalf("performance = %+v, %v", stats, err)
	}
}

func TestInvalidIDsNeverSent(t *testing.T) {
	f := newFixture(t, models.RoleManager)
	ctx := context.Background()

	if _, err := f.api.Defect(ctx, 0); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("Defect(0) = %v", err)
	}
	if err := f.api.DeleteAttachment(ctx, 1, -1); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("DeleteAttachment(1, -1) = %v", err)
	}
	if n := len(f.backend.Requests()); n != 0 {
		t.Fatalf("%d requests reached the server", n)
	}
}

func TestInvalidPayloadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 3, "title": "x", "priority": "urgent", "status": "Новая", "project_id": 1}`))
	}))
	defer srv.Close()

	client, err := httpclient.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(client).Defect(context.Background(), 3); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestConcurrentCallsAreIndependent(t *testing.T) {
	f := newFixture(t, models.RoleEngineer)
	ctx := context.Background()
	p := f.project(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.api.Project(ctx, p.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Project: %v", err)
		}
	}

	ids := map[string]bool{}
	for _, req := range f.backend.Requests() {
		ids[req.Header.Get("X-Request-ID")] = true
	}
	if len(ids) != len(f.backend.Requests()) {
		t.Fatal("request ids were reused")
	}
}
