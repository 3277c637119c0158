package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/balkashynov/defectctl/internal/models"
)

// Color constants for the defectctl theme
const (
	// Base Colors
	ColorCardBackground = "#14202B" // Dark slate
	ColorBorder         = "#34495E" // Grey-blue

	// Text Colors
	ColorPrimaryText   = "#E6EAF2" // Primary text (field labels, user input, titles)
	ColorSecondaryText = "#A9B4C2" // Secondary text
	ColorDisabledText  = "#6D7383" // Disabled/muted text
	ColorPlaceholder   = "#8A94A6"
	ColorHelpText      = "240" // Dark grey for help text

	// Accent Colors
	ColorAccentMain   = "#0EA5E9" // Logo, accent elements, active borders
	ColorAccentBright = "#7DD3FC" // Hover, highlights, current step

	// State Colors
	ColorError   = "#EF4444" // Validation errors, critical defects
	ColorSuccess = "#22C55E" // Success, closed defects
	ColorWarning = "#F59E0B" // Warnings, high priority
)

// PriorityColor picks the foreground for a priority badge.
func PriorityColor(p models.Priority) lipgloss.Color {
	switch p {
	case models.PriorityCritical:
		return lipgloss.Color(ColorError)
	case models.PriorityHigh:
		return lipgloss.Color(ColorWarning)
	case models.PriorityMedium:
		return lipgloss.Color(ColorAccentBright)
	}
	return lipgloss.Color(ColorSecondaryText)
}

// StatusColor picks the foreground for a status badge.
func StatusColor(s models.Status) lipgloss.Color {
	switch s {
	case models.StatusClosed:
		return lipgloss.Color(ColorSuccess)
	case models.StatusCancelled:
		return lipgloss.Color(ColorDisabledText)
	case models.StatusInProgress, models.StatusInReview:
		return lipgloss.Color(ColorAccentBright)
	}
	return lipgloss.Color(ColorPrimaryText)
}

// RoleColor picks the foreground for a role badge.
func RoleColor(r models.Role) lipgloss.Color {
	switch r {
	case models.RoleManager, models.RoleAdmin:
		return lipgloss.Color(ColorAccentMain)
	case models.RoleEngineer:
		return lipgloss.Color(ColorAccentBright)
	}
	return lipgloss.Color(ColorSecondaryText)
}
