package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/balkashynov/defectctl/internal/models"
)

var (
	slashDateRegex = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	isoDateRegex   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	relativeRegex  = regexp.MustCompile(`^(\d+)\s*(h|hour|hours|d|day|days|w|week|weeks)$`)
)

// now is swapped in tests.
var now = time.Now

// ParseDueDate parses various due date formats
// Supported formats:
// - dd/mm/yyyy (e.g., "15/12/2024")
// - yyyy-mm-dd (e.g., "2024-12-15")
// - today, tomorrow
// - X days (e.g., "3 days", "3days", "3d")
// - X hours (e.g., "24 hours", "24h")
// - X weeks (e.g., "2 weeks", "2w")
func ParseDueDate(input string) (*time.Time, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return nil, nil
	}

	switch input {
	case "today":
		due := endOfDay(now(), 0)
		return &due, nil
	case "tomorrow":
		due := endOfDay(now(), 1)
		return &due, nil
	}

	if day, err := ParseDay(input); err == nil {
		due := endOfDay(day, 0)
		return &due, nil
	}

	if dueDate, err := parseRelativeTime(input); err == nil {
		return dueDate, nil
	}

	return nil, fmt.Errorf("invalid date format. Use: dd/mm/yyyy, yyyy-mm-dd, today, tomorrow, X days, X hours, or X weeks")
}

// ParseDay parses a calendar date given as dd/mm/yyyy or yyyy-mm-dd, at local midnight.
func ParseDay(input string) (time.Time, error) {
	input = strings.TrimSpace(input)

	var day, month, year int
	if m := slashDateRegex.FindStringSubmatch(input); m != nil {
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	} else if m := isoDateRegex.FindStringSubmatch(input); m != nil {
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
	} else {
		return time.Time{}, fmt.Errorf("invalid date %q", input)
	}

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return time.Time{}, fmt.Errorf("year must be between 2000 and 2100")
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)

	// Check if date is valid (handles leap years, etc.)
	if date.Day() != day || date.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("invalid date %q", input)
	}
	return date, nil
}

// ParseDateRange parses optional from/to bounds for reports and filters.
func ParseDateRange(from, to string) (models.DateRange, error) {
	var r models.DateRange
	if strings.TrimSpace(from) != "" {
		start, err := ParseDay(from)
		if err != nil {
			return r, fmt.Errorf("from: %w", err)
		}
		r.Start = &start
	}
	if strings.TrimSpace(to) != "" {
		end, err := ParseDay(to)
		if err != nil {
			return r, fmt.Errorf("to: %w", err)
		}
		r.End = &end
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return r, fmt.Errorf("date range ends before it starts")
	}
	return r, nil
}

// parseRelativeTime parses relative time formats like "3 days", "24h", etc.
func parseRelativeTime(input string) (*time.Time, error) {
	matches := relativeRegex.FindStringSubmatch(input)
	if len(matches) != 3 {
		return nil, fmt.Errorf("invalid relative time format")
	}

	amount, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid number")
	}

	switch matches[2] {
	case "h", "hour", "hours":
		if amount < 1 || amount > 8760 { // Max 1 year in hours
			return nil, fmt.Errorf("hours must be between 1 and 8760")
		}
		dueDate := now().Add(time.Duration(amount) * time.Hour)
		return &dueDate, nil

	case "d", "day", "days":
		if amount < 1 || amount > 365 {
			return nil, fmt.Errorf("days must be between 1 and 365")
		}
		dueDate := endOfDay(now(), amount)
		return &dueDate, nil

	case "w", "week", "weeks":
		if amount < 1 || amount > 52 {
			return nil, fmt.Errorf("weeks must be between 1 and 52")
		}
		dueDate := endOfDay(now(), amount*7)
		return &dueDate, nil
	}
	return nil, fmt.Errorf("unsupported time unit")
}

// endOfDay returns 23:59:59 on the day offset days after t.
func endOfDay(t time.Time, days int) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, days).Add(23*time.Hour + 59*time.Minute + 59*time.Second)
}

// FormatDueDate formats a defect due date for display. Finished defects are never overdue.
func FormatDueDate(dueDate *time.Time, status models.Status) string {
	if dueDate == nil || dueDate.IsZero() {
		return ""
	}

	current := now()
	today := time.Date(current.Year(), current.Month(), current.Day(), 0, 0, 0, 0, current.Location())
	dueDay := time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), 0, 0, 0, 0, current.Location())
	daysDiff := int(dueDay.Sub(today).Hours() / 24)

	// Always show the actual date to avoid confusion
	dateStr := dueDate.Format("02/01/2006")

	switch {
	case !status.Open():
		return fmt.Sprintf("Due %s", dateStr)
	case daysDiff < 0:
		return fmt.Sprintf("⚠️ OVERDUE (%s)", dateStr)
	case daysDiff == 0:
		return fmt.Sprintf("🔥 Due today (%s)", dateStr)
	case daysDiff == 1:
		return fmt.Sprintf("📅 Due tomorrow (%s)", dateStr)
	case daysDiff <= 7:
		return fmt.Sprintf("📅 Due %s (in %d days)", dateStr, daysDiff)
	default:
		return fmt.Sprintf("📅 Due %s", dateStr)
	}
}
