package models

import "fmt"

// Project groups defects.
type Project struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	CreatedAt   Time    `json:"created_at"`
	OwnerID     int     `json:"owner_id"`
}

func (p Project) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("%w: project id missing", ErrInvalid)
	}
	if p.Title == "" {
		return fmt.Errorf("%w: project %d has no title", ErrInvalid, p.ID)
	}
	return nil
}

// ProjectInput creates or replaces a project.
type ProjectInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}
