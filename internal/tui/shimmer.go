package tui

import (
	"math"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ShimmerConfig holds configuration for the selected-row highlight sweep
type ShimmerConfig struct {
	Enabled    bool
	SpeedMs    int     // tick interval
	WidthRatio float64 // highlight width as a share of the text
	CycleMs    int     // time for one sweep
	PauseMs    int     // pause between sweeps
}

// DefaultShimmerConfig returns the default sweep. DEFECTCTL_REDUCE_MOTION=1 turns it off.
func DefaultShimmerConfig() ShimmerConfig {
	return ShimmerConfig{
		Enabled:    os.Getenv("DEFECTCTL_REDUCE_MOTION") == "",
		SpeedMs:    100,
		WidthRatio: 0.25,
		CycleMs:    1800,
		PauseMs:    500,
	}
}

// ShimmerState is the position of the sweep over the selected title.
type ShimmerState struct {
	config     ShimmerConfig
	center     float64
	active     bool
	pausedAt   time.Time
	base       lipgloss.Color
	highlights []lipgloss.Color
}

// NewShimmerState creates a new shimmer state
func NewShimmerState(config ShimmerConfig) *ShimmerState {
	return &ShimmerState{
		config: config,
		active: config.Enabled,
		base:   lipgloss.Color(ColorSecondaryText),
		highlights: []lipgloss.Color{
			lipgloss.Color(ColorAccentMain),
			lipgloss.Color(ColorAccentBright),
			lipgloss.Color("#E0F2FE"),
		},
	}
}

// Tick advances the sweep by one step for text of length n.
func (s *ShimmerState) Tick(n int, now time.Time) {
	if !s.active || n == 0 {
		return
	}
	if !s.pausedAt.IsZero() {
		if now.Sub(s.pausedAt) < time.Duration(s.config.PauseMs)*time.Millisecond {
			return
		}
		s.pausedAt = time.Time{}
		s.center = -float64(n) * s.config.WidthRatio
	}

	ticksPerCycle := float64(s.config.CycleMs) / float64(s.config.SpeedMs)
	distance := float64(n) * (1 + 2*s.config.WidthRatio)
	s.center += distance / ticksPerCycle

	if s.center >= float64(n)*(1+s.config.WidthRatio) {
		s.pausedAt = now
	}
}

// Reset restarts the sweep (call when selection changes)
func (s *ShimmerState) Reset() {
	s.center = 0
	s.pausedAt = time.Time{}
}

// SetActive enables/disables shimmer
func (s *ShimmerState) SetActive(active bool) {
	s.active = active && s.config.Enabled
}

// Interval is the tick period, zero when the sweep is off.
func (s *ShimmerState) Interval() time.Duration {
	if !s.active {
		return 0
	}
	return time.Duration(s.config.SpeedMs) * time.Millisecond
}

// Render colors text by its distance from the sweep center.
func (s *ShimmerState) Render(text string) string {
	runes := []rune(text)
	if !s.active {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Render(text)
	}

	sigma := math.Max(1, s.config.WidthRatio*float64(len(runes))/2)
	var b strings.Builder
	for i, r := range runes {
		dx := float64(i) - s.center
		weight := math.Exp(-(dx * dx) / (2 * sigma * sigma))

		color := s.base
		if level := int(weight * float64(len(s.highlights)+1)); level > 0 {
			color = s.highlights[min(level, len(s.highlights))-1]
		}
		b.WriteString(lipgloss.NewStyle().Foreground(color).Render(string(r)))
	}
	return b.String()
}
