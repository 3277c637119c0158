package api

import (
	"context"
	"net/http"

	"github.com/balkashynov/defectctl/internal/models"
)

// Projects lists every project visible to the caller.
func (a *API) Projects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := a.get(ctx, "/projects/", nil, &projects); err != nil {
		return nil, err
	}
	if err := validateAll(projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Project fetches one project.
func (a *API) Project(ctx context.Context, id int) (*models.Project, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	var project models.Project
	if err := a.get(ctx, "/projects/"+itoa(id), nil, &project); err != nil {
		return nil, err
	}
	if err := project.Validate(); err != nil {
		return nil, err
	}
	return &project, nil
}

// CreateProject creates a project owned by userID.
func (a *API) CreateProject(ctx context.Context, userID int, in models.ProjectInput) (*models.Project, error) {
	if err := checkIDs(userID); err != nil {
		return nil, err
	}
	var project models.Project
	if err := a.send(ctx, http.MethodPost, "/users/"+itoa(userID)+"/projects/", in, &project); err != nil {
		return nil, err
	}
	if err := project.Validate(); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateProject replaces a project's title and description.
func (a *API) UpdateProject(ctx context.Context, id int, in models.ProjectInput) (*models.Project, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	var project models.Project
	if err := a.send(ctx, http.MethodPut, "/projects/"+itoa(id), in, &project); err != nil {
		return nil, err
	}
	if err := project.Validate(); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject removes a project.
func (a *API) DeleteProject(ctx context.Context, id int) error {
	if err := checkIDs(id); err != nil {
		return err
	}
	return a.remove(ctx, "/projects/"+itoa(id))
}
