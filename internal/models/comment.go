package models

import "fmt"

// Comment is a note left on a defect.
type Comment struct {
	ID        int    `json:"id"`
	Content   string `json:"content"`
	CreatedAt Time   `json:"created_at"`
	AuthorID  int    `json:"author_id"`
	DefectID  int    `json:"defect_id"`
}

func (c Comment) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("%w: comment id missing", ErrInvalid)
	}
	if c.DefectID <= 0 {
		return fmt.Errorf("%w: comment %d has no defect", ErrInvalid, c.ID)
	}
	return nil
}

// CommentInput creates or edits a comment.
type CommentInput struct {
	Content  string `json:"content"`
	DefectID int    `json:"defect_id"`
}

// Attachment is a file uploaded to a defect.
type Attachment struct {
	ID         int    `json:"id"`
	Filename   string `json:"filename"`
	FilePath   string `json:"file_path"`
	UploadedAt Time   `json:"uploaded_at"`
	UploaderID int    `json:"uploader_id"`
	DefectID   int    `json:"defect_id"`
}

func (a Attachment) Validate() error {
	if a.ID <= 0 {
		return fmt.Errorf("%w: attachment id missing", ErrInvalid)
	}
	if a.Filename == "" {
		return fmt.Errorf("%w: attachment %d has no filename", ErrInvalid, a.ID)
	}
	return nil
}
