package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/relabs-tech/osc_bridge/internal/config"
	"github.com/relabs-tech/osc_bridge/internal/ui"
)

// RunTUI runs the bridge with the terminal control panel in front. Logs go
// to logPath while the panel owns the terminal.
func RunTUI(configPath, logPath string) error {
	if err := config.InitGlobal(configPath); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	f, err := tea.LogToFile(logPath, "")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := NewServices(config.Get(), configPath)
	model := ui.NewModel(s.Bridge, func() string { return s.Source.State().String() })
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	errc := make(chan error, 1)
	go func() {
		errc <- s.Run(ctx)
		p.Quit() // a failed service ends the panel too
	}()

	_, uiErr := p.Run()
	interrupted := ctx.Err() != nil

	cancel()
	runErr := <-errc
	log.Println("bridge: shut down")

	if runErr != nil {
		return runErr
	}
	if uiErr != nil && !interrupted {
		return fmt.Errorf("terminal UI: %w", uiErr)
	}
	return nil
}
