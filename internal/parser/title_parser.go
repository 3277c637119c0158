package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/balkashynov/defectctl/internal/models"
)

var (
	projectRegex  = regexp.MustCompile(`(?:^|\s)@(\S+)`)
	priorityRegex = regexp.MustCompile(`(?:^|\s)\+(\S+)`)
	assigneeRegex = regexp.MustCompile(`(?:^|\s)assign:(\S+)`)
	dueRegex      = regexp.MustCompile(`(?:^|\s)due:(\S+)`)
)

// ParsedDefect represents a defect parsed from quick-add syntax
type ParsedDefect struct {
	Title      string
	ProjectID  int
	AssigneeID int
	Priority   models.Priority
	DueDate    *time.Time
	Errors     []string
}

// ParseTitle extracts metadata from a defect title using quick-add syntax
// Syntax: "Crash on save +critical @12 assign:7 due:3days"
func ParseTitle(input string) ParsedDefect {
	result := ParsedDefect{Errors: []string{}}

	// Extract project (@12 or @PRJ-12)
	if m := projectRegex.FindStringSubmatch(input); m != nil {
		id, err := ParseRef(m[1])
		if err != nil {
			result.Errors = append(result.Errors, "Invalid project '"+m[1]+"': "+err.Error())
		} else {
			result.ProjectID = id
		}
		input = projectRegex.ReplaceAllString(input, " ")
	}

	// Extract priority (+critical, +high, +2, etc.)
	if m := priorityRegex.FindStringSubmatch(input); m != nil {
		priority, err := ParsePriority(m[1])
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Priority = priority
		}
		input = priorityRegex.ReplaceAllString(input, " ")
	}

	// Extract assignee (assign:7)
	if m := assigneeRegex.FindStringSubmatch(input); m != nil {
		id, err := ParseRef(m[1])
		if err != nil {
			result.Errors = append(result.Errors, "Invalid assignee '"+m[1]+"': "+err.Error())
		} else {
			result.AssigneeID = id
		}
		input = assigneeRegex.ReplaceAllString(input, " ")
	}

	// Extract due date (due:3days, due:15/12/2024, etc.)
	if m := dueRegex.FindStringSubmatch(input); m != nil {
		dueDate, err := ParseDueDate(m[1])
		if err != nil {
			result.Errors = append(result.Errors, "Invalid due date '"+m[1]+"': "+err.Error())
		} else {
			result.DueDate = dueDate
		}
		input = dueRegex.ReplaceAllString(input, " ")
	}

	// Clean up the title (remove extra spaces)
	result.Title = strings.Join(strings.Fields(input), " ")
	return result
}

// Input turns the parse into a create request. Missing fields are left to the server.
func (p ParsedDefect) Input() models.DefectInput {
	in := models.DefectInput{
		Title:     p.Title,
		ProjectID: p.ProjectID,
		Priority:  p.Priority,
	}
	if p.AssigneeID > 0 {
		id := p.AssigneeID
		in.AssigneeID = &id
	}
	if p.DueDate != nil {
		in.DueDate = models.NewTime(*p.DueDate)
	}
	return in
}
