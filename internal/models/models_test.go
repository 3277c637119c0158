package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestTimeAcceptsBackendFormats(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{`"2024-03-01T10:20:30"`, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{`"2024-03-01T10:20:30.123456"`, time.Date(2024, 3, 1, 10, 20, 30, 123456000, time.UTC)},
		{`"2024-03-01T10:20:30Z"`, time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)},
		{`"2024-03-01"`, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		var got Time
		if err := json.Unmarshal([]byte(tc.raw), &got); err != nil {
			t.Fatalf("%s: %v", tc.raw, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%s: got %s want %s", tc.raw, got.Time, tc.want)
		}
	}

	var bad Time
	if err := json.Unmarshal([]byte(`"yesterday"`), &bad); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestDefectDecodesNullables(t *testing.T) {
	raw := `{"id":7,"title":"Crash","description":null,"priority":"Высокий","status":"В работе",
		"created_at":"2024-03-01T10:00:00","updated_at":null,"due_date":null,
		"reporter_id":2,"assignee_id":null,"project_id":3}`
	var d Defect
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if d.Priority.Name() != "High" || d.Status.Name() != "InProgress" {
		t.Fatalf("unexpected names %s/%s", d.Priority.Name(), d.Status.Name())
	}
	if d.DueDate != nil || d.AssigneeID != nil || d.Description != nil {
		t.Fatalf("nullable fields should stay nil: %+v", d)
	}
	if d.DueDate.Display() != "-" {
		t.Fatalf("nil time should display as dash")
	}
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	d := Defect{ID: 1, Title: "x", Priority: "Urgent", Status: StatusNew, ProjectID: 1}
	if err := d.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	u := User{ID: 1, Username: "ann", Role: "superuser"}
	if err := u.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if err := (User{ID: 1, Username: "root", Role: RoleAdmin}).Validate(); err != nil {
		t.Fatalf("admin should be accepted when decoding: %v", err)
	}
}

func TestDefectFilterValues(t *testing.T) {
	since := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	v := DefectFilter{ProjectID: 4, Status: StatusClosed, CreatedStartDate: &since, SearchQuery: "login"}.Values()
	if v.Get("project_id") != "4" || v.Get("status") != "Закрыта" || v.Get("search_query") != "login" {
		t.Fatalf("unexpected values %v", v)
	}
	if v.Get("created_start_date") != "2024-01-02T00:00:00" {
		t.Fatalf("unexpected date %q", v.Get("created_start_date"))
	}
	if v.Has("assignee_id") || v.Has("limit") || v.Has("priority") {
		t.Fatalf("unset fields must be omitted: %v", v)
	}
}

func TestDefectInputOmitsDefaults(t *testing.T) {
	data, err := json.Marshal(DefectInput{Title: "t", ProjectID: 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"title":"t","project_id":1}` {
		t.Fatalf("unexpected body %s", data)
	}
	if !(DefectUpdate{}).Empty() {
		t.Fatalf("zero update should be empty")
	}
}

func TestDateRangeValues(t *testing.T) {
	start := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	v := DateRange{Start: &start}.Values()
	if v.Get("start_date") != "2024-05-01" || v.Has("end_date") {
		t.Fatalf("unexpected values %v", v)
	}
}
