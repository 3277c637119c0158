// Package apitest runs an in-memory stand-in for the defect tracker backend so the
// client, façade and session can be tested over real HTTP.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/balkashynov/defectctl/internal/models"
)

// Created is the timestamp stamped on every entity the backend creates.
var Created = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// ExportData is served by the export endpoint. It is deliberately not valid UTF-8.
var ExportData = []byte{0x50, 0x4b, 0x03, 0x04, 0xff, 0xfe, 0x00, 0x80, 'i', 'd'}

// Recorded is one request as the backend saw it.
type Recorded struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type account struct {
	models.User
	password string
}

type attachment struct {
	models.Attachment
	data []byte
}

type failure struct {
	status int
	detail string
}

// Backend is the fake server. The zero value is not usable; call New.
type Backend struct {
	Server *httptest.Server

	mu          sync.Mutex
	nextID      int
	users       map[int]*account
	tokens      map[string]int
	projects    map[int]models.Project
	defects     map[int]models.Defect
	comments    map[int]models.Comment
	attachments map[int]attachment
	failures    map[string]failure
	requests    []Recorded
}

// New starts a backend with no users.
func New() *Backend {
	b := &Backend{
		users:       map[int]*account{},
		tokens:      map[string]int{},
		projects:    map[int]models.Project{},
		defects:     map[int]models.Defect{},
		comments:    map[int]models.Comment{},
		attachments: map[int]attachment{},
		failures:    map[string]failure{},
	}
	b.Server = httptest.NewServer(b.routes())
	return b
}

// URL is the base URL of the running server.
func (b *Backend) URL() string { return b.Server.URL }

// Close stops the server.
func (b *Backend) Close() { b.Server.Close() }

// AddUser creates an account that can log in with password.
func (b *Backend) AddUser(username, password string, role models.Role) models.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUser(username, username+"@example.com", password, role)
}

func (b *Backend) addUser(username, email, password string, role models.Role) models.User {
	b.nextID++
	u := &account{
		User:     models.User{ID: b.nextID, Username: username, Email: email, Role: role, IsActive: true},
		password: password,
	}
	b.users[u.ID] = u
	return u.User
}

// IssueToken returns a valid bearer token for userID without going through /token.
func (b *Backend) IssueToken(userID int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	token := uuid.NewString()
	b.tokens[token] = userID
	return token
}

// RevokeTokens invalidates every issued token.
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = map[string]int{}
}

// Fail makes every method request to path answer with status and a FastAPI style detail.
func (b *Backend) Fail(method, path string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{status: status, detail: detail}
}

// Requests returns every request received so far.
func (b *Backend) Requests() []Recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Recorded(nil), b.requests...)
}

// LastRequest returns the most recent request.
func (b *Backend) LastRequest() Recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return Recorded{}
	}
	return b.requests[len(b.requests)-1]
}

func (b *Backend) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(b.record, b.injectFailures)

	r.HandleFunc("/token", b.handleToken).Methods("POST")
	r.HandleFunc("/register/", b.handleRegister).Methods("POST")

	r.HandleFunc("/users/me/", b.authed(b.handleMe)).Methods("GET")
	r.HandleFunc("/users/{id:[0-9]+}", b.authed(b.handleUser)).Methods("GET")
	r.HandleFunc("/users/{id:[0-9]+}/role", b.authed(b.handleRole)).Methods("PUT")
	r.HandleFunc("/users/{id:[0-9]+}/projects/", b.authed(b.handleCreateProject)).Methods("POST")
	r.HandleFunc("/admin/users/", b.authed(b.handleUsers)).Methods("GET")

	r.HandleFunc("/projects/", b.authed(b.handleProjects)).Methods("GET")
	r.HandleFunc("/projects/{id:[0-9]+}", b.authed(b.handleProject)).Methods("GET", "PUT", "DELETE")

	r.HandleFunc("/defects/", b.authed(b.handleDefects)).Methods("GET")
	r.HandleFunc("/defects/", b.authed(b.handleCreateDefect)).Methods("POST")
	r.HandleFunc("/defects/{id:[0-9]+}", b.authed(b.handleDefect)).Methods("GET", "PUT", "DELETE")
	r.HandleFunc("/defects/{id:[0-9]+}/comments/", b.authed(b.handleComments)).Methods("GET", "POST")
	r.HandleFunc("/comments/{id:[0-9]+}", b.authed(b.handleComment)).Methods("PUT", "DELETE")
	r.HandleFunc("/defects/{id:[0-9]+}/attachments/", b.authed(b.handleAttachments)).Methods("GET", "POST")
	r.HandleFunc("/defects/{id:[0-9]+}/attachments/{aid:[0-9]+}", b.authed(b.handleDeleteAttachment)).Methods("DELETE")
	r.HandleFunc("/defects/{id:[0-9]+}/attachments/{aid:[0-9]+}/download", b.authed(b.handleDownload)).Methods("GET")

	r.HandleFunc("/reports/defects/export", b.authed(b.handleExport)).Methods("GET")
	r.HandleFunc("/reports/analytics/summary", b.authed(b.handleSummary)).Methods("GET")
	r.HandleFunc("/reports/analytics/status-distribution", b.authed(b.handleStatusDistribution)).Methods("GET")
	r.HandleFunc("/reports/analytics/priority-distribution", b.authed(b.handlePriorityDistribution)).Methods("GET")
	r.HandleFunc("/reports/analytics/creation-trend", b.authed(b.handleTrend)).Methods("GET")
	r.HandleFunc("/reports/analytics/project-performance", b.authed(b.handlePerformance)).Methods("GET")
	return r
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		b.mu.Lock()
		b.requests = append(b.requests, Recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		b.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (b *Backend) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		f, ok := b.failures[r.Method+" "+r.URL.Path]
		b.mu.Unlock()
		if ok {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, me models.User)

func (b *Backend) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		userID, known := b.tokens[token]
		u := b.users[userID]
		b.mu.Unlock()
		if !ok || !known || u == nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		h(w, r, u.User)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeValidation mimics FastAPI's 422 body.
func writeValidation(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{"loc": []string{"body", field}, "msg": msg, "type": "value_error"}},
	})
}

func pathID(r *http.Request, name string) int {
	id, _ := strconv.Atoi(mux.Vars(r)[name])
	return id
}

func requireRole(w http.ResponseWriter, me models.User, roles ...models.Role) bool {
	if me.HasRole(roles...) || me.Role == models.RoleAdmin {
		return true
	}
	writeDetail(w, http.StatusForbidden, "Not enough permissions")
	return false
}

func (b *Backend) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Username == username && u.password == password {
			token := uuid.NewString()
			b.tokens[token] = u.ID
			writeJSON(w, http.StatusOK, models.Token{AccessToken: token, TokenType: "bearer"})
			return
		}
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "body", err.Error())
		return
	}
	if in.Username == "" || in.Password == "" {
		writeValidation(w, "username", "field required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Username == in.Username {
			writeDetail(w, http.StatusBadRequest, "Username already registered")
			return
		}
	}
	// every self-registered account starts as an observer whatever was asked for
	writeJSON(w, http.StatusOK, b.addUser(in.Username, in.Email, in.Password, models.RoleObserver))
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request, me models.User) {
	writeJSON(w, http.StatusOK, me)
}

func (b *Backend) handleUser(w http.ResponseWriter, r *http.Request, me models.User) {
	b.mu.Lock()
	u, ok := b.users[pathID(r, "id")]
	b.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u.User)
}

func (b *Backend) handleUsers(w http.ResponseWriter, r *http.Request, me models.User) {
	if !requireRole(w, me, models.RoleManager) {
		return
	}
	b.mu.Lock()
	users := make([]models.User, 0, len(b.users))
	for _, u := range b.users {
		users = append(users, u.User)
	}
	b.mu.Unlock()
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	writeJSON(w, http.StatusOK, users)
}

func (b *Backend) handleRole(w http.ResponseWriter, r *http.Request, me models.User) {
	if !requireRole(w, me, models.RoleManager) {
		return
	}
	role := models.Role(r.URL.Query().Get("new_role"))
	if role == "" {
		var body models.RoleUpdate
		json.NewDecoder(r.Body).Decode(&body)
		role = body.NewRole
	}
	if !role.Valid() {
		writeValidation(w, "new_role", "invalid role")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[pathID(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	u.Role = role
	writeJSON(w, http.StatusOK, u.User)
}

func (b *Backend) handleProjects(w http.ResponseWriter, r *http.Request, me models.User) {
	b.mu.Lock()
	projects := make([]models.Project, 0, len(b.projects))
	for _, p := range b.projects {
		projects = append(projects, p)
	}
	b.mu.Unlock()
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	writeJSON(w, http.StatusOK, projects)
}

func (b *Backend) handleCreateProject(w http.ResponseWriter, r *http.Request, me models.User) {
	var in models.ProjectInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" {
		writeValidation(w, "title", "field required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	p := models.Project{ID: b.nextID, Title: in.Title, Description: in.Description, CreatedAt: models.Time{Time: Created}, OwnerID: pathID(r, "id")}
	b.projects[p.ID] = p
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) handleProject(w http.ResponseWriter, r *http.Request, me models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := pathID(r, "id")
	p, ok := b.projects[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var in models.ProjectInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Title == "" {
			writeValidation(w, "title", "field required")
			return
		}
		p.Title, p.Description = in.Title, in.Description
		b.projects[id] = p
	case http.MethodDelete:
		delete(b.projects, id)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *Backend) handleDefects(w http.ResponseWriter, r *http.Request, me models.User) {
	q := r.URL.Query()
	projectID, _ := strconv.Atoi(q.Get("project_id"))
	skip, _ := strconv.Atoi(q.Get("skip"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	search := strings.ToLower(q.Get("search_query"))

	b.mu.Lock()
	defects := []models.Defect{}
	for _, d := range b.defects {
		switch {
		case projectID > 0 && d.ProjectID != projectID:
		case q.Get("status") != "" && string(d.Status) != q.Get("status"):
		case q.Get("priority") != "" && string(d.Priority) != q.Get("priority"):
		case search != "" && !strings.Contains(strings.ToLower(d.Title), search):
		default:
			defects = append(defects, d)
		}
	}
	b.mu.Unlock()

	sort.Slice(defects, func(i, j int) bool { return defects[i].ID < defects[j].ID })
	if skip > len(defects) {
		skip = len(defects)
	}
	defects = defects[skip:]
	if limit > 0 && limit < len(defects) {
		defects = defects[:limit]
	}
	writeJSON(w, http.StatusOK, defects)
}

func (b *Backend) handleCreateDefect(w http.ResponseWriter, r *http.Request, me models.User) {
	var in models.DefectInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "body", err.Error())
		return
	}
	if in.Title == "" {
		writeValidation(w, "title", "field required")
		return
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if in.Status == "" {
		in.Status = models.StatusNew
	}
	if !in.Priority.Valid() {
		writeValidation(w, "priority", "invalid priority")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.projects[in.ProjectID]; !ok {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	b.nextID++
	d := models.Defect{
		ID:          b.nextID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      in.Status,
		CreatedAt:   models.Time{Time: Created},
		DueDate:     in.DueDate,
		ReporterID:  me.ID,
		AssigneeID:  in.AssigneeID,
		ProjectID:   in.ProjectID,
	}
	b.defects[d.ID] = d
	writeJSON(w, http.StatusOK, d)
}

func (b *Backend) handleDefect(w http.ResponseWriter, r *http.Request, me models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := pathID(r, "id")
	d, ok := b.defects[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Defect not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var in models.DefectUpdate
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeValidation(w, "body", err.Error())
			return
		}
		if in.Title != nil {
			d.Title = *in.Title
		}
		if in.Description != nil {
			d.Description = in.Description
		}
		if in.Priority != nil {
			d.Priority = *in.Priority
		}
		if in.Status != nil {
			d.Status = *in.Status
		}
		if in.DueDate != nil {
			d.DueDate = in.DueDate
		}
		if in.AssigneeID != nil {
			d.AssigneeID = in.AssigneeID
		}
		d.UpdatedAt = &models.Time{Time: Created.Add(time.Hour)}
		b.defects[id] = d
	case http.MethodDelete:
		delete(b.defects, id)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (b *Backend) handleComments(w http.ResponseWriter, r *http.Request, me models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	defectID := pathID(r, "id")
	if _, ok := b.defects[defectID]; !ok {
		writeDetail(w, http.StatusNotFound, "Defect not found")
		return
	}

	if r.Method == http.MethodPost {
		var in models.CommentInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Content == "" {
			writeValidation(w, "content", "field required")
			return
		}
		b.nextID++
		c := models.Comment{ID: b.nextID, Content: in.Content, CreatedAt: models.Time{Time: Created}, AuthorID: me.ID, DefectID: defectID}
		b.comments[c.ID] = c
		writeJSON(w, http.StatusOK, c)
		return
	}

	comments := []models.Comment{}
	for _, c := range b.comments {
		if c.DefectID == defectID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	writeJSON(w, http.StatusOK, comments)
}

func (b *Backend) handleComment(w http.ResponseWriter, r *http.Request, me models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := pathID(r, "id")
	c, ok := b.comments[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Comment not found")
		return
	}
	if c.AuthorID != me.ID && !me.HasRole(models.RoleManager, models.RoleAdmin) {
		writeDetail(w, http.StatusForbidden, "Not enough permissions")
		return
	}

	if r.Method == http.MethodDelete {
		delete(b.comments, id)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	var in models.CommentInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Content == "" {
		writeValidation(w, "content", "field required")
		return
	}
	c.Content = in.Content
	b.comments[id] = c
	writeJSON(w, http.StatusOK, c)
}

func (b *Backend) handleAttachments(w http.ResponseWriter, r *http.Request, me models.User) {
	defectID := pathID(r, "id")

	if r.Method == http.MethodPost {
		file, header, err := r.FormFile("file")
		if err != nil {
			writeValidation(w, "file", "field required")
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)

		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.defects[defectID]; !ok {
			writeDetail(w, http.StatusNotFound, "Defect not found")
			return
		}
		b.nextID++
		a := models.Attachment{
			ID:         b.nextID,
			Filename:   header.Filename,
			FilePath:   fmt.Sprintf("uploads/%d/%s", defectID, header.Filename),
			UploadedAt: models.Time{Time: Created},
			UploaderID: me.ID,
			DefectID:   defectID,
		}
		b.attachments[a.ID] = attachment{Attachment: a, data: data}
		writeJSON(w, http.StatusOK, a)
		return
	}

	b.mu.Lock()
	list := []models.Attachment{}
	for _, a := range b.attachments {
		if a.DefectID == defectID {
			list = append(list, a.Attachment)
		}
	}
	b.mu.Unlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	writeJSON(w, http.StatusOK, list)
}

func (b *Backend) lookupAttachment(w http.ResponseWriter, r *http.Request) (attachment, bool) {
	a, ok := b.attachments[pathID(r, "aid")]
	if !ok || a.DefectID != pathID(r, "id") {
		writeDetail(w, http.StatusNotFound, "Attachment not found")
		return attachment{}, false
	}
	return a, true
}

func (b *Backend) handleDownload(w http.ResponseWriter, r *http.Request, me models.User) {
	b.mu.Lock()
	a, ok := b.lookupAttachment(w, r)
	b.mu.Unlock()
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, a.Filename))
	w.Write(a.data)
}

func (b *Backend) handleDeleteAttachment(w http.ResponseWriter, r *http.Request, me models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.lookupAttachment(w, r)
	if !ok {
		return
	}
	delete(b.attachments, a.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleExport(w http.ResponseWriter, r *http.Request, me models.User) {
	format := r.URL.Query().Get("format")
	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	default:
		writeDetail(w, http.StatusBadRequest, "Unsupported format")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="defects_report.`+format+`"`)
	w.Write(ExportData)
}

func (b *Backend) snapshotDefects() []models.Defect {
	b.mu.Lock()
	defer b.mu.Unlock()
	defects := make([]models.Defect, 0, len(b.defects))
	for _, d := range b.defects {
		defects = append(defects, d)
	}
	return defects
}

func (b *Backend) handleSummary(w http.ResponseWriter, r *http.Request, me models.User) {
	defects := b.snapshotDefects()
	open := 0
	for _, d := range defects {
		if d.Status.Open() {
			open++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_defects":  len(defects),
		"open_defects":   open,
		"closed_defects": len(defects) - open,
	})
}

func (b *Backend) handleStatusDistribution(w http.ResponseWriter, r *http.Request, me models.User) {
	dist := models.Distribution{}
	for _, d := range b.snapshotDefects() {
		dist[string(d.Status)]++
	}
	writeJSON(w, http.StatusOK, dist)
}

func (b *Backend) handlePriorityDistribution(w http.ResponseWriter, r *http.Request, me models.User) {
	dist := models.Distribution{}
	for _, d := range b.snapshotDefects() {
		dist[string(d.Priority)]++
	}
	writeJSON(w, http.StatusOK, dist)
}

func (b *Backend) handleTrend(w http.ResponseWriter, r *http.Request, me models.User) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		writeValidation(w, "days", "value is not a valid integer")
		return
	}
	points := make([]models.TrendPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		points = append(points, models.TrendPoint{Date: Created.AddDate(0, 0, -i).Format("2006-01-02")})
	}
	points[len(points)-1].Count = len(b.snapshotDefects())
	writeJSON(w, http.StatusOK, points)
}

func (b *Backend) handlePerformance(w http.ResponseWriter, r *http.Request, me models.User) {
	b.mu.Lock()
	stats := map[int]*models.ProjectStats{}
	for _, p := range b.projects {
		stats[p.ID] = &models.ProjectStats{ProjectID: p.ID, Title: p.Title}
	}
	for _, d := range b.defects {
		s, ok := stats[d.ProjectID]
		if !ok {
			continue
		}
		s.TotalDefects++
		if d.Status.Open() {
			s.OpenDefects++
		} else {
			s.ClosedDefects++
		}
	}
	b.mu.Unlock()

	out := make([]models.ProjectStats, 0, len(stats))
	for _, s := range stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	writeJSON(w, http.StatusOK, out)
}
