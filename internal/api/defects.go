package api

import (
	"context"
	"net/http"

	"github.com/balkashynov/defectctl/internal/models"
)

// Defects lists defects matching filter.
func (a *API) Defects(ctx context.Context, filter models.DefectFilter) ([]models.Defect, error) {
	var defects []models.Defect
	if err := a.get(ctx, "/defects/", filter.Values(), &defects); err != nil {
		return nil, err
	}
	if err := validateAll(defects); err != nil {
		return nil, err
	}
	return defects, nil
}

// Defect fetches one defect.
func (a *API) Defect(ctx context.Context, id int) (*models.Defect, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	var defect models.Defect
	if err := a.get(ctx, "/defects/"+itoa(id), nil, &defect); err != nil {
		return nil, err
	}
	if err := defect.Validate(); err != nil {
		return nil, err
	}
	return &defect, nil
}

// CreateDefect files a new defect.
func (a *API) CreateDefect(ctx context.Context, in models.DefectInput) (*models.Defect, error) {
	if err := checkIDs(in.ProjectID); err != nil {
		return nil, err
	}
	var defect models.Defect
	if err := a.send(ctx, http.MethodPost, "/defects/", in, &defect); err != nil {
		return nil, err
	}
	if err := defect.Validate(); err != nil {
		return nil, err
	}
	return &defect, nil
}

// UpdateDefect applies the set fields of in.
func (a *API) UpdateDefect(ctx context.Context, id int, in models.DefectUpdate) (*models.Defect, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	var defect models.Defect
	if err := a.send(ctx, http.MethodPut, "/defects/"+itoa(id), in, &defect); err != nil {
		return nil, err
	}
	if err := defect.Validate(); err != nil {
		return nil, err
	}
	return &defect, nil
}

// DeleteDefect removes a defect.
func (a *API) DeleteDefect(ctx context.Context, id int) error {
	if err := checkIDs(id); err != nil {
		return err
	}
	return a.remove(ctx, "/defects/"+itoa(id))
}

// Comments lists the comments on a defect.
func (a *API) Comments(ctx context.Context, defectID int) ([]models.Comment, error) {
	if err := checkIDs(defectID); err != nil {
		return nil, err
	}
	var comments []models.Comment
	if err := a.get(ctx, "/defects/"+itoa(defectID)+"/comments/", nil, &comments); err != nil {
		return nil, err
	}
	if err := validateAll(comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment adds a comment to a defect.
func (a *API) CreateComment(ctx context.Context, defectID int, content string) (*models.Comment, error) {
	if err := checkIDs(defectID); err != nil {
		return nil, err
	}
	in := models.CommentInput{Content: content, DefectID: defectID}
	var comment models.Comment
	if err := a.send(ctx, http.MethodPost, "/defects/"+itoa(defectID)+"/comments/", in, &comment); err != nil {
		return nil, err
	}
	if err := comment.Validate(); err != nil {
		return nil, err
	}
	return &comment, nil
}

// UpdateComment replaces a comment's text.
func (a *API) UpdateComment(ctx context.Context, id, defectID int, content string) (*models.Comment, error) {
	if err := checkIDs(id, defectID); err != nil {
		return nil, err
	}
	in := models.CommentInput{Content: content, DefectID: defectID}
	var comment models.Comment
	if err := a.send(ctx, http.MethodPut, "/comments/"+itoa(id), in, &comment); err != nil {
		return nil, err
	}
	if err := comment.Validate(); err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment removes a comment.
func (a *API) DeleteComment(ctx context.Context, id int) error {
	if err := checkIDs(id); err != nil {
		return err
	}
	return a.remove(ctx, "/comments/"+itoa(id))
}
