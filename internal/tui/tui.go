package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/defectctl/internal/models"
	"github.com/balkashynov/defectctl/internal/parser"
	"github.com/balkashynov/defectctl/internal/session"
)

// ErrCancelled is returned when the user leaves a form without submitting.
var ErrCancelled = errors.New("cancelled")

// RunAuthTUI shows the login or registration form. The spinner follows the session's
// loading flag through a subscription.
func RunAuthTUI(ctx context.Context, mgr *session.Manager, mode AuthMode, username string) (*models.User, error) {
	p := tea.NewProgram(NewAuthModel(ctx, mgr, mode, username))
	cancel := mgr.Subscribe(func(s session.Session) { p.Send(sessionMsg(s)) })
	defer cancel()

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	m, ok := finalModel.(AuthModel)
	if !ok || m.Cancelled() || m.User() == nil {
		return nil, ErrCancelled
	}
	return m.User(), nil
}

// RunDefectFormTUI runs the defect wizard and returns the filed defect.
func RunDefectFormTUI(ctx context.Context, creator DefectCreator, prefilled parser.ParsedDefect) (*models.Defect, error) {
	p := tea.NewProgram(NewDefectFormModel(ctx, creator, prefilled), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	m, ok := finalModel.(DefectFormModel)
	if !ok || m.Cancelled() || m.Created() == nil {
		return nil, ErrCancelled
	}
	return m.Created(), nil
}

// RunBrowserTUI starts the interactive defect browser
func RunBrowserTUI(ctx context.Context, source DefectSource, filter models.DefectFilter) error {
	p := tea.NewProgram(NewBrowserModel(ctx, source, filter), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
