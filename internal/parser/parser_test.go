package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/balkashynov/defectctl/internal/models"
)

func freezeNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func TestParseDueDate(t *testing.T) {
	base := time.Date(2024, 6, 10, 9, 30, 0, 0, time.Local)
	freezeNow(t, base)

	cases := []struct {
		in   string
		want time.Time
	}{
		{"15/12/2024", time.Date(2024, 12, 15, 23, 59, 59, 0, time.Local)},
		{"2024-12-15", time.Date(2024, 12, 15, 23, 59, 59, 0, time.Local)},
		{"today", time.Date(2024, 6, 10, 23, 59, 59, 0, time.Local)},
		{"Tomorrow", time.Date(2024, 6, 11, 23, 59, 59, 0, time.Local)},
		{"3 days", time.Date(2024, 6, 13, 23, 59, 59, 0, time.Local)},
		{"3days", time.Date(2024, 6, 13, 23, 59, 59, 0, time.Local)},
		{"2w", time.Date(2024, 6, 24, 23, 59, 59, 0, time.Local)},
		{"24h", base.Add(24 * time.Hour)},
	}
	for _, tc := range cases {
		got, err := ParseDueDate(tc.in)
		if err != nil {
			t.Errorf("ParseDueDate(%q): %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseDueDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if got, err := ParseDueDate("  "); got != nil || err != nil {
		t.Errorf("blank input = %v, %v", got, err)
	}
	for _, bad := range []string{"31/02/2024", "soon", "0 days", "400 days", "13/13/2024"} {
		if _, err := ParseDueDate(bad); err == nil {
			t.Errorf("ParseDueDate(%q) accepted", bad)
		}
	}
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("01/03/2024", "2024-03-31")
	if err != nil {
		t.Fatalf("ParseDateRange: %v", err)
	}
	v := r.Values()
	if v.Get("start_date") != "2024-03-01" || v.Get("end_date") != "2024-03-31" {
		t.Fatalf("values = %v", v)
	}

	if r, err := ParseDateRange("", ""); err != nil || r.Start != nil || r.End != nil {
		t.Fatalf("open range = %+v, %v", r, err)
	}
	if _, err := ParseDateRange("2024-04-01", "2024-03-01"); err == nil {
		t.Fatal("accepted reversed range")
	}
}

func TestFormatDueDate(t *testing.T) {
	freezeNow(t, time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local))
	past := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	soon := time.Date(2024, 6, 11, 12, 0, 0, 0, time.Local)

	if got := FormatDueDate(&past, models.StatusNew); !strings.Contains(got, "OVERDUE") {
		t.Errorf("open past defect = %q", got)
	}
	if got := FormatDueDate(&past, models.StatusClosed); strings.Contains(got, "OVERDUE") {
		t.Errorf("closed defect shown overdue: %q", got)
	}
	if got := FormatDueDate(&soon, models.StatusInProgress); !strings.Contains(got, "tomorrow") {
		t.Errorf("tomorrow = %q", got)
	}
	if got := FormatDueDate(nil, models.StatusNew); got != "" {
		t.Errorf("nil = %q", got)
	}
}

func TestParseRef(t *testing.T) {
	for in, want := range map[string]int{"42": 42, "#42": 42, "DEF-42": 42, "def-7": 7, " PRJ-3 ": 3} {
		got, err := ParseRef(in)
		if err != nil || got != want {
			t.Errorf("ParseRef(%q) = %d, %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "0", "DEF-", "abc", "-4", "1.5"} {
		if _, err := ParseRef(bad); err == nil {
			t.Errorf("ParseRef(%q) accepted", bad)
		}
	}
	if DefectRef(12) != "DEF-12" {
		t.Errorf("DefectRef = %q", DefectRef(12))
	}
}

func TestParseEnums(t *testing.T) {
	priorities := map[string]models.Priority{
		"low": models.PriorityLow, "MED": models.PriorityMedium, "3": models.PriorityHigh,
		"Critical": models.PriorityCritical, "Критический": models.PriorityCritical,
	}
	for in, want := range priorities {
		if got, err := ParsePriority(in); err != nil || got != want {
			t.Errorf("ParsePriority(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Error("ParsePriority accepted urgent")
	}

	statuses := map[string]models.Status{
		"new": models.StatusNew, "In progress": models.StatusInProgress, "in-review": models.StatusInReview,
		"CLOSED": models.StatusClosed, "canceled": models.StatusCancelled, "В работе": models.StatusInProgress,
	}
	for in, want := range statuses {
		if got, err := ParseStatus(in); err != nil || got != want {
			t.Errorf("ParseStatus(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStatus("open"); err == nil {
		t.Error("ParseStatus accepted open")
	}

	if role, err := ParseRole("Engineer"); err != nil || role != models.RoleEngineer {
		t.Errorf("ParseRole = %q, %v", role, err)
	}
	if _, err := ParseRole("admin"); err == nil {
		t.Error("ParseRole accepted admin")
	}

	if f, err := ParseExportFormat("excel"); err != nil || f != models.ExportXLSX {
		t.Errorf("ParseExportFormat(excel) = %q, %v", f, err)
	}
	if _, err := ParseExportFormat("pdf"); err == nil {
		t.Error("ParseExportFormat accepted pdf")
	}
}

func TestParseTitle(t *testing.T) {
	freezeNow(t, time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local))

	got := ParseTitle("Crash on save +critical @12 assign:7 due:3days")
	if len(got.Errors) != 0 {
		t.Fatalf("errors: %v", got.Errors)
	}
	if got.Title != "Crash on save" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Priority != models.PriorityCritical || got.ProjectID != 12 || got.AssigneeID != 7 {
		t.Errorf("parsed %+v", got)
	}
	if got.DueDate == nil || got.DueDate.Day() != 13 {
		t.Errorf("due = %v", got.DueDate)
	}

	in := got.Input()
	if in.AssigneeID == nil || *in.AssigneeID != 7 || in.DueDate == nil || in.ProjectID != 12 {
		t.Errorf("input = %+v", in)
	}
}

func TestParseTitleKeepsEmbeddedSymbols(t *testing.T) {
	got := ParseTitle("Email user@example.com bounces +high @3")
	if got.Title != "Email user@example.com bounces" {
		t.Errorf("title = %q", got.Title)
	}
	if got.ProjectID != 3 || got.Priority != models.PriorityHigh {
		t.Errorf("parsed %+v", got)
	}
}

func TestParseTitleCollectsErrors(t *testing.T) {
	got := ParseTitle("Broken +urgent @abc due:someday")
	if len(got.Errors) != 3 {
		t.Fatalf("errors = %v", got.Errors)
	}
	if got.Title != "Broken" {
		t.Errorf("title = %q", got.Title)
	}
}
