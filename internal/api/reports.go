package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/balkashynov/defectctl/internal/httpclient"
	"github.com/balkashynov/defectctl/internal/models"
)

// ExportDefects downloads the defect report. The body is returned as-is.
func (a *API) ExportDefects(ctx context.Context, format models.ExportFormat, filter models.DefectFilter) (*httpclient.Blob, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidFormat, format)
	}
	query := filter.Values()
	query.Set("format", string(format))
	return a.client.Blob(ctx, httpclient.Request{Method: http.MethodGet, Path: "/reports/defects/export", Query: query})
}

// AnalyticsSummary returns the overview metrics for r.
func (a *API) AnalyticsSummary(ctx context.Context, r models.DateRange) (models.Summary, error) {
	var summary models.Summary
	if err := a.get(ctx, "/reports/analytics/summary", r.Values(), &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// StatusDistribution counts defects per status in r.
func (a *API) StatusDistribution(ctx context.Context, r models.DateRange) (models.Distribution, error) {
	var dist models.Distribution
	if err := a.get(ctx, "/reports/analytics/status-distribution", r.Values(), &dist); err != nil {
		return nil, err
	}
	return dist, nil
}

// PriorityDistribution counts defects per priority in r.
func (a *API) PriorityDistribution(ctx context.Context, r models.DateRange) (models.Distribution, error) {
	var dist models.Distribution
	if err := a.get(ctx, "/reports/analytics/priority-distribution", r.Values(), &dist); err != nil {
		return nil, err
	}
	return dist, nil
}

// CreationTrend returns daily creation counts for the last days days (30 when days <= 0).
func (a *API) CreationTrend(ctx context.Context, days int) ([]models.TrendPoint, error) {
	if days <= 0 {
		days = 30
	}
	var points []models.TrendPoint
	if err := a.get(ctx, "/reports/analytics/creation-trend", models.DaysValues(days), &points); err != nil {
		return nil, err
	}
	return points, nil
}

// ProjectPerformance returns per-project defect counts in r.
func (a *API) ProjectPerformance(ctx context.Context, r models.DateRange) ([]models.ProjectStats, error) {
	var stats []models.ProjectStats
	if err := a.get(ctx, "/reports/analytics/project-performance", r.Values(), &stats); err != nil {
		return nil, err
	}
	return stats, nil
}
