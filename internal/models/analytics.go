package models

import (
	"net/url"
	"strconv"
	"time"
)

// ExportFormat is a defect report file format.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

func (f ExportFormat) Valid() bool {
	return f == ExportCSV || f == ExportXLSX
}

// DateRange bounds analytics queries. Nil ends are left to the server.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Values encodes the range as start_date/end_date.
func (r DateRange) Values() url.Values {
	v := url.Values{}
	if r.Start != nil {
		v.Set("start_date", r.Start.Format("2006-01-02"))
	}
	if r.End != nil {
		v.Set("end_date", r.End.Format("2006-01-02"))
	}
	return v
}

// DaysValues encodes the creation-trend window.
func DaysValues(days int) url.Values {
	return url.Values{"days": {strconv.Itoa(days)}}
}

// Summary is the analytics overview: named metrics whose set is decided by the server.
type Summary map[string]any

// Distribution counts defects per status or priority label.
type Distribution map[string]int

// TrendPoint is the number of defects created on one day.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ProjectStats is one row of the project performance report.
type ProjectStats struct {
	ProjectID     int    `json:"project_id"`
	Title         string `json:"title"`
	TotalDefects  int    `json:"total_defects"`
	OpenDefects   int    `json:"open_defects"`
	ClosedDefects int    `json:"closed_defects"`
}
