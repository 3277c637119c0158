package parser

import (
	"fmt"
	"strings"

	"github.com/balkashynov/defectctl/internal/models"
)

// normalizeWord lowercases and drops spaces, dashes and underscores so "In progress",
// "in-progress" and "InProgress" compare equal.
func normalizeWord(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

// ParsePriority accepts English names, the backend's own strings, short forms and 1-4.
func ParsePriority(input string) (models.Priority, error) {
	switch normalizeWord(input) {
	case "1", "low", "низкий":
		return models.PriorityLow, nil
	case "2", "medium", "med", "средний":
		return models.PriorityMedium, nil
	case "3", "high", "высокий":
		return models.PriorityHigh, nil
	case "4", "critical", "crit", "критический":
		return models.PriorityCritical, nil
	}
	return "", fmt.Errorf("invalid priority '%s'. Use: low, medium, high, critical, or 1-4", input)
}

// ParseStatus accepts English names in any spacing and the backend's own strings.
func ParseStatus(input string) (models.Status, error) {
	switch normalizeWord(input) {
	case "new", "новая":
		return models.StatusNew, nil
	case "inprogress", "progress", "wip", "вработе":
		return models.StatusInProgress, nil
	case "inreview", "review", "напроверке":
		return models.StatusInReview, nil
	case "closed", "done", "закрыта":
		return models.StatusClosed, nil
	case "cancelled", "canceled", "отменена":
		return models.StatusCancelled, nil
	}
	return "", fmt.Errorf("invalid status '%s'. Use: new, in-progress, in-review, closed, or cancelled", input)
}

// ParseRole accepts the roles a manager can assign.
func ParseRole(input string) (models.Role, error) {
	role := models.Role(strings.ToLower(strings.TrimSpace(input)))
	for _, r := range models.AssignableRoles {
		if role == r {
			return role, nil
		}
	}
	return "", fmt.Errorf("invalid role '%s'. Use: manager, engineer, or observer", input)
}

// ParseExportFormat accepts csv, xlsx and excel.
func ParseExportFormat(input string) (models.ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "csv":
		return models.ExportCSV, nil
	case "xlsx", "excel":
		return models.ExportXLSX, nil
	}
	return "", fmt.Errorf("invalid format '%s'. Use: csv or xlsx", input)
}
