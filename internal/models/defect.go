package models

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Priority values are the strings the backend stores.
type Priority string

const (
	PriorityLow      Priority = "Низкий"
	PriorityMedium   Priority = "Средний"
	PriorityHigh     Priority = "Высокий"
	PriorityCritical Priority = "Критический"
)

// Priorities lists every priority from least to most urgent.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Name returns the English name of the priority.
func (p Priority) Name() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	}
	return string(p)
}

func (p Priority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

// Status values are the strings the backend stores.
type Status string

const (
	StatusNew        Status = "Новая"
	StatusInProgress Status = "В работе"
	StatusInReview   Status = "На проверке"
	StatusClosed     Status = "Закрыта"
	StatusCancelled  Status = "Отменена"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusNew, StatusInProgress, StatusInReview, StatusClosed, StatusCancelled}

// Name returns the English name of the status.
func (s Status) Name() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusInProgress:
		return "InProgress"
	case StatusInReview:
		return "InReview"
	case StatusClosed:
		return "Closed"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Open reports whether work on the defect is still expected.
func (s Status) Open() bool {
	return s != StatusClosed && s != StatusCancelled
}

// Defect is a tracked problem inside a project.
type Defect struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
	CreatedAt   Time     `json:"created_at"`
	UpdatedAt   *Time    `json:"updated_at"`
	DueDate     *Time    `json:"due_date"`
	ReporterID  int      `json:"reporter_id"`
	AssigneeID  *int     `json:"assignee_id"`
	ProjectID   int      `json:"project_id"`
}

func (d Defect) Validate() error {
	if d.ID <= 0 {
		return fmt.Errorf("%w: defect id missing", ErrInvalid)
	}
	if d.Title == "" {
		return fmt.Errorf("%w: defect %d has no title", ErrInvalid, d.ID)
	}
	if !d.Priority.Valid() {
		return fmt.Errorf("%w: defect %d has unknown priority %q", ErrInvalid, d.ID, d.Priority)
	}
	if !d.Status.Valid() {
		return fmt.Errorf("%w: defect %d has unknown status %q", ErrInvalid, d.ID, d.Status)
	}
	if d.ProjectID <= 0 {
		return fmt.Errorf("%w: defect %d has no project", ErrInvalid, d.ID)
	}
	return nil
}

// DefectInput creates a defect. Empty priority and status take server defaults.
type DefectInput struct {
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	Status      Status   `json:"status,omitempty"`
	DueDate     *Time    `json:"due_date,omitempty"`
	ProjectID   int      `json:"project_id"`
	AssigneeID  *int     `json:"assignee_id,omitempty"`
}

// DefectUpdate changes only the fields that are set.
type DefectUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	DueDate     *Time     `json:"due_date,omitempty"`
	AssigneeID  *int      `json:"assignee_id,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u DefectUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Priority == nil &&
		u.Status == nil && u.DueDate == nil && u.AssigneeID == nil
}

// DefectFilter narrows defect listings and exports.
type DefectFilter struct {
	ProjectID        int
	Status           Status
	Priority         Priority
	AssigneeID       int
	ReporterID       int
	CreatedStartDate *time.Time
	CreatedEndDate   *time.Time
	DueStartDate     *time.Time
	DueEndDate       *time.Time
	SearchQuery      string
	Skip             int
	Limit            int
}

// Values encodes the filter as query parameters, omitting unset fields.
func (f DefectFilter) Values() url.Values {
	v := url.Values{}
	setInt := func(key string, n int) {
		if n > 0 {
			v.Set(key, strconv.Itoa(n))
		}
	}
	setTime := func(key string, t *time.Time) {
		if t != nil {
			v.Set(key, t.Format("2006-01-02T15:04:05"))
		}
	}

	setInt("project_id", f.ProjectID)
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.Priority != "" {
		v.Set("priority", string(f.Priority))
	}
	setInt("assignee_id", f.AssigneeID)
	setInt("reporter_id", f.ReporterID)
	setTime("created_start_date", f.CreatedStartDate)
	setTime("created_end_date", f.CreatedEndDate)
	setTime("due_start_date", f.DueStartDate)
	setTime("due_end_date", f.DueEndDate)
	if f.SearchQuery != "" {
		v.Set("search_query", f.SearchQuery)
	}
	setInt("skip", f.Skip)
	setInt("limit", f.Limit)
	return v
}
