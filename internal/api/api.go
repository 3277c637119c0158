// Package api is the typed façade over the defect tracker REST API: one method per
// backend operation, each a thin wrapper that composes the path, query and payload,
// delegates to the HTTP client and validates what comes back.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/balkashynov/defectctl/internal/httpclient"
	"github.com/balkashynov/defectctl/internal/models"
)

var (
	// ErrInvalidFormat is returned for export formats other than csv and xlsx.
	ErrInvalidFormat = errors.New("export format must be csv or xlsx")
	// ErrInvalidID is returned when an entity id is not positive.
	ErrInvalidID = errors.New("id must be positive")
	// ErrInvalidPayload wraps responses that fail validation.
	ErrInvalidPayload = models.ErrInvalid
)

// API is the façade. It holds no state beyond the client.
type API struct {
	client *httpclient.Client
}

// New wraps client.
func New(client *httpclient.Client) *API {
	return &API{client: client}
}

type validator interface {
	Validate() error
}

func (a *API) get(ctx context.Context, path string, query url.Values, out any) error {
	return a.client.Call(ctx, httpclient.Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (a *API) send(ctx context.Context, method, path string, body, out any) error {
	return a.client.Call(ctx, httpclient.Request{Method: method, Path: path, JSON: body}, out)
}

func (a *API) remove(ctx context.Context, path string) error {
	return a.client.Call(ctx, httpclient.Request{Method: http.MethodDelete, Path: path}, nil)
}

func validateAll[T validator](items []T) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func checkIDs(ids ...int) error {
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidID, id)
		}
	}
	return nil
}

func itoa(id int) string { return strconv.Itoa(id) }

// Login exchanges credentials for a bearer token.
func (a *API) Login(ctx context.Context, username, password string) (*models.Token, error) {
	form := url.Values{"username": {username}, "password": {password}}
	var token models.Token
	if err := a.client.Call(ctx, httpclient.Request{Method: http.MethodPost, Path: "/token", Form: form}, &token); err != nil {
		return nil, err
	}
	if err := token.Validate(); err != nil {
		return nil, err
	}
	return &token, nil
}

// Register creates an account. The role in the response is whatever the server assigned.
func (a *API) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	var user models.User
	if err := a.send(ctx, http.MethodPost, "/register/", in, &user); err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser returns the owner of the bearer token.
func (a *API) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := a.get(ctx, "/users/me/", nil, &user); err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return &user, nil
}

// User fetches one user by id.
func (a *API) User(ctx context.Context, id int) (*models.User, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	var user models.User
	if err := a.get(ctx, "/users/"+itoa(id), nil, &user); err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return &user, nil
}

// Users lists every account (manager only on the server side).
func (a *API) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := a.get(ctx, "/admin/users/", nil, &users); err != nil {
		return nil, err
	}
	if err := validateAll(users); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUserRole changes a user's role.
func (a *API) UpdateUserRole(ctx context.Context, userID int, role models.Role) (*models.User, error) {
	if err := checkIDs(userID); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	// the backend binds new_role as a query scalar; the JSON body keeps older servers working
	req := httpclient.Request{
		Method: http.MethodPut,
		Path:   "/users/" + itoa(userID) + "/role",
		Query:  url.Values{"new_role": {string(role)}},
		JSON:   models.RoleUpdate{NewRole: role},
	}
	var user models.User
	if err := a.client.Call(ctx, req, &user); err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	return &user, nil
}

// Attachments lists files attached to a defect.
func (a *API) Attachments(ctx context.Context, defectID int) ([]models.Attachment, error) {
	if err := checkIDs(defectID); err != nil {
		return nil, err
	}
	var attachments []models.Attachment
	if err := a.get(ctx, "/defects/"+itoa(defectID)+"/attachments/", nil, &attachments); err != nil {
		return nil, err
	}
	if err := validateAll(attachments); err != nil {
		return nil, err
	}
	return attachments, nil
}

// UploadAttachment sends content as a multipart upload named filename.
func (a *API) UploadAttachment(ctx context.Context, defectID int, filename string, content io.Reader) (*models.Attachment, error) {
	if err := checkIDs(defectID); err != nil {
		return nil, err
	}
	req := httpclient.Request{
		Method: http.MethodPost,
		Path:   "/defects/" + itoa(defectID) + "/attachments/",
		File:   &httpclient.FilePart{Field: "file", Filename: filename, Content: content},
	}
	var attachment models.Attachment
	if err := a.client.Call(ctx, req, &attachment); err != nil {
		return nil, err
	}
	if err := attachment.Validate(); err != nil {
		return nil, err
	}
	return &attachment, nil
}

// DownloadAttachment returns the stored file.
func (a *API) DownloadAttachment(ctx context.Context, defectID, attachmentID int) (*httpclient.Blob, error) {
	if err := checkIDs(defectID, attachmentID); err != nil {
		return nil, err
	}
	path := "/defects/" + itoa(defectID) + "/attachments/" + itoa(attachmentID) + "/download"
	return a.client.Blob(ctx, httpclient.Request{Method: http.MethodGet, Path: path})
}

// DeleteAttachment removes a file from a defect.
func (a *API) DeleteAttachment(ctx context.Context, defectID, attachmentID int) error {
	if err := checkIDs(defectID, attachmentID); err != nil {
		return err
	}
	return a.remove(ctx, "/defects/"+itoa(defectID)+"/attachments/"+itoa(attachmentID))
}
