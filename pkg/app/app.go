package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/kerbaras/mangaread/pkg/app/screens"
)

type App struct {
	controller screens.Controller
	log        *zap.Logger
}

func NewApp(controller screens.Controller, log *zap.Logger) *App {
	return &App{controller: controller, log: log}
}

func (a *App) Run(ctx context.Context) error {
	model := screens.NewRootScreen(ctx, a.controller, a.log)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
